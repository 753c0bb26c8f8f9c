package accounts

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"despesas/internal/ledger"
	"despesas/internal/models"
	"despesas/internal/session"
	"despesas/internal/storage"
	"despesas/internal/storage/jsonfile"
)

const (
	adminEmail  = "admin@example.com"
	adminSecret = "hunter2-admin"
	alice       = "alice@example.com"
)

// ManagerTestSuite provides a test suite for the account lifecycle.
type ManagerTestSuite struct {
	suite.Suite
	manager *Manager
	ledger  *ledger.Ledger
	creds   *jsonfile.CredentialStore
}

// SetupTest runs before each test
func (suite *ManagerTestSuite) SetupTest() {
	dir := suite.T().TempDir()

	creds, err := jsonfile.NewCredentialStore(filepath.Join(dir, "credentials.json"))
	require.NoError(suite.T(), err)
	expenses, err := jsonfile.NewExpenseStore(filepath.Join(dir, "expenses.json"))
	require.NoError(suite.T(), err)

	sessions, err := session.New("", adminEmail)
	require.NoError(suite.T(), err)

	suite.creds = creds
	suite.ledger = ledger.New(expenses)
	suite.manager = NewManager(creds, suite.ledger, sessions, adminEmail, adminSecret)
	require.NoError(suite.T(), suite.manager.EnsureAdmin())
}

func (suite *ManagerTestSuite) loginAdmin() {
	_, err := suite.manager.Authenticate(adminEmail, adminSecret)
	require.NoError(suite.T(), err)
}

func (suite *ManagerTestSuite) TestEnsureAdminIsIdempotent() {
	require.NoError(suite.T(), suite.manager.EnsureAdmin())
	require.NoError(suite.T(), suite.manager.EnsureAdmin())

	s, err := suite.manager.Authenticate(adminEmail, adminSecret)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), s.IsAdmin)
}

func (suite *ManagerTestSuite) TestRegisterDuplicateIdentity() {
	approved, err := suite.manager.Register(alice, "secret1", "Alice")
	require.NoError(suite.T(), err)
	assert.False(suite.T(), approved, "new accounts await approval")

	// Same identity, different secret: still a duplicate.
	_, err = suite.manager.Register(alice, "other-secret", "Alice Again")
	assert.ErrorIs(suite.T(), err, ErrDuplicateIdentity)
}

func (suite *ManagerTestSuite) TestRegisterAdminIdentityIsDuplicate() {
	// EnsureAdmin already claimed the identity; registration for it can
	// never succeed (the original app reserved the admin email too).
	_, err := suite.manager.Register(adminEmail, "whatever", "")
	assert.ErrorIs(suite.T(), err, ErrDuplicateIdentity)
}

func (suite *ManagerTestSuite) TestAuthenticateUnknownIdentity() {
	_, err := suite.manager.Authenticate("nobody@example.com", "secret")
	assert.ErrorIs(suite.T(), err, ErrUnknownIdentity)
}

func (suite *ManagerTestSuite) TestUnapprovedNeverAuthenticates() {
	_, err := suite.manager.Register(alice, "secret1", "Alice")
	require.NoError(suite.T(), err)

	// Even the exactly correct secret must not work before approval.
	_, err = suite.manager.Authenticate(alice, "secret1")
	assert.ErrorIs(suite.T(), err, ErrNotApproved)

	_, ok := suite.manager.Sessions().Current()
	assert.False(suite.T(), ok, "no session may be set on failure")
}

func (suite *ManagerTestSuite) TestApproveThenAuthenticate() {
	_, err := suite.manager.Register(alice, "secret1", "Alice")
	require.NoError(suite.T(), err)

	suite.loginAdmin()
	require.NoError(suite.T(), suite.manager.Approve(alice))

	s, err := suite.manager.Authenticate(alice, "secret1")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), alice, s.Identity)
	assert.False(suite.T(), s.IsAdmin)

	current, ok := suite.manager.Sessions().Current()
	require.True(suite.T(), ok)
	assert.Equal(suite.T(), alice, current.Identity)
}

func (suite *ManagerTestSuite) TestApprovedBadSecret() {
	_, err := suite.manager.Register(alice, "secret1", "Alice")
	require.NoError(suite.T(), err)
	suite.loginAdmin()
	require.NoError(suite.T(), suite.manager.Approve(alice))

	_, err = suite.manager.Authenticate(alice, "wrong")
	assert.ErrorIs(suite.T(), err, ErrBadSecret)
}

func (suite *ManagerTestSuite) TestAdminPlaintextBypass() {
	s, err := suite.manager.Authenticate(adminEmail, adminSecret)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), s.IsAdmin)

	_, err = suite.manager.Authenticate(adminEmail, "wrong")
	assert.Error(suite.T(), err, "wrong admin secret falls through to the store and fails")
}

func (suite *ManagerTestSuite) TestApproveRequiresAdminSession() {
	_, err := suite.manager.Register(alice, "secret1", "Alice")
	require.NoError(suite.T(), err)

	// Anonymous.
	err = suite.manager.Approve(alice)
	assert.ErrorIs(suite.T(), err, session.ErrNotAuthenticated)

	// Authenticated but not admin.
	suite.loginAdmin()
	require.NoError(suite.T(), suite.manager.Approve(alice))
	_, err = suite.manager.Authenticate(alice, "secret1")
	require.NoError(suite.T(), err)

	err = suite.manager.Approve("anyone@example.com")
	assert.ErrorIs(suite.T(), err, session.ErrNotAuthenticated)
}

func (suite *ManagerTestSuite) TestApproveTwiceIsANotice() {
	_, err := suite.manager.Register(alice, "secret1", "Alice")
	require.NoError(suite.T(), err)
	suite.loginAdmin()

	require.NoError(suite.T(), suite.manager.Approve(alice))
	err = suite.manager.Approve(alice)
	assert.ErrorIs(suite.T(), err, ErrAlreadyApproved)
}

func (suite *ManagerTestSuite) TestApproveUnknownIdentity() {
	suite.loginAdmin()
	err := suite.manager.Approve("nobody@example.com")
	assert.ErrorIs(suite.T(), err, ErrUnknownIdentity)
}

func (suite *ManagerTestSuite) TestDeleteIdentityCascades() {
	_, err := suite.manager.Register(alice, "secret1", "Alice")
	require.NoError(suite.T(), err)
	suite.loginAdmin()
	require.NoError(suite.T(), suite.manager.Approve(alice))

	_, err = suite.ledger.Append(alice, "Coffee", decimal.RequireFromString("4.50"), "food", time.Now())
	require.NoError(suite.T(), err)
	_, err = suite.ledger.Append("bob@example.com", "Lunch", decimal.RequireFromString("12.00"), "food", time.Now())
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), suite.manager.DeleteIdentity(alice))

	_, err = suite.manager.Authenticate(alice, "secret1")
	assert.ErrorIs(suite.T(), err, ErrUnknownIdentity)

	records, err := suite.ledger.ListFor(alice)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), records, "Alice's records are cascade-deleted")

	bobRecords, err := suite.ledger.ListFor("bob@example.com")
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), bobRecords, 1, "other owners keep their records")
}

// failingLedgerBackend refuses every mutation, standing in for a ledger
// whose backing medium has become unwritable.
type failingLedgerBackend struct{}

func (failingLedgerBackend) Load() ([]models.Expense, error) {
	return nil, storage.ErrStorageUnavailable
}

func (failingLedgerBackend) Update(func(*[]models.Expense) error) error {
	return storage.ErrStorageUnavailable
}

func (suite *ManagerTestSuite) TestDeleteIdentityReportsOrphanedRecords() {
	_, err := suite.manager.Register(alice, "secret1", "Alice")
	require.NoError(suite.T(), err)
	suite.loginAdmin()
	require.NoError(suite.T(), suite.manager.Approve(alice))

	_, err = suite.ledger.Append(alice, "Coffee", decimal.RequireFromString("4.50"), "food", time.Now())
	require.NoError(suite.T(), err)

	// Same credential store, but the cascade hits a dead ledger: the
	// credential delete persists and the orphaned state is reported.
	broken := NewManager(suite.creds, ledger.New(failingLedgerBackend{}),
		suite.manager.Sessions(), adminEmail, adminSecret)

	err = broken.DeleteIdentity(alice)
	require.Error(suite.T(), err)
	assert.ErrorIs(suite.T(), err, storage.ErrStorageUnavailable)
	assert.Contains(suite.T(), err.Error(), "orphaned records")
	assert.Contains(suite.T(), err.Error(), alice)

	// The credential really is gone.
	_, err = suite.manager.Authenticate(alice, "secret1")
	assert.ErrorIs(suite.T(), err, ErrUnknownIdentity)

	// The records survived the failed cascade, inert under a deleted
	// identity.
	records, err := suite.ledger.ListFor(alice)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), records, 1)
}

func (suite *ManagerTestSuite) TestAccountsExcludesAdmin() {
	_, err := suite.manager.Register(alice, "secret1", "Alice")
	require.NoError(suite.T(), err)
	_, err = suite.manager.Register("bob@example.com", "secret2", "Bob")
	require.NoError(suite.T(), err)

	suite.loginAdmin()
	list, err := suite.manager.Accounts()
	require.NoError(suite.T(), err)
	require.Len(suite.T(), list, 2)
	assert.Equal(suite.T(), alice, list[0].Identity, "sorted by identity")
	assert.Equal(suite.T(), "bob@example.com", list[1].Identity)
	for _, c := range list {
		assert.NotEqual(suite.T(), adminEmail, c.Identity)
	}
}

func (suite *ManagerTestSuite) TestLogoutClearsSession() {
	suite.loginAdmin()
	require.NoError(suite.T(), suite.manager.Logout())
	_, ok := suite.manager.Sessions().Current()
	assert.False(suite.T(), ok)
}

// TestEndToEndFlow walks the full lifecycle: register, blocked login,
// approval, login, one expense appended, listed and removed.
func (suite *ManagerTestSuite) TestEndToEndFlow() {
	_, err := suite.manager.Register(alice, "secret1", "Alice")
	require.NoError(suite.T(), err)

	_, err = suite.manager.Authenticate(alice, "secret1")
	require.ErrorIs(suite.T(), err, ErrNotApproved)

	suite.loginAdmin()
	require.NoError(suite.T(), suite.manager.Approve(alice))

	_, err = suite.manager.Authenticate(alice, "secret1")
	require.NoError(suite.T(), err)

	occurred := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	id, err := suite.ledger.Append(alice, "Coffee", decimal.RequireFromString("4.50"), "Food", occurred)
	require.NoError(suite.T(), err)

	records, err := suite.ledger.ListFor(alice)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), records, 1)
	assert.Equal(suite.T(), "Coffee", records[0].Description)
	assert.Equal(suite.T(), "4.5", records[0].Amount.String())
	assert.Equal(suite.T(), "Food", records[0].Category)
	assert.True(suite.T(), records[0].OccurredAt.Equal(occurred))

	require.NoError(suite.T(), suite.ledger.Remove(id, alice))
	records, err = suite.ledger.ListFor(alice)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), records)
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerTestSuite))
}
