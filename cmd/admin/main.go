// Command admin manages accounts from the command line: list
// registrations, approve or delete an identity, or register one
// directly. It operates on the same stores as the server, so the server
// does not need to be running (with the jsonfile backend, it may be).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"despesas/internal/accounts"
	"despesas/internal/ledger"
	"despesas/internal/models"
	"despesas/internal/session"
	"despesas/internal/storage"
	"despesas/internal/storage/jsonfile"
	"despesas/internal/storage/sqlite"
)

const usage = `Usage: admin <list|approve|delete|register> [flags]

  list                       show all accounts and their approval state
  approve  -user <identity>  approve a pending registration
  delete   -user <identity>  delete an identity and all of its expenses
  register -user <identity> [-name <display name>] [-password <password>]
`

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("missing command")
	}
	command := args[0]
	switch command {
	case "list", "approve", "delete", "register":
	default:
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("unknown command %q", command)
	}

	fs := flag.NewFlagSet("admin", flag.ContinueOnError)
	fs.SetOutput(stderr)
	user := fs.String("user", "", "Identity (email) to operate on")
	passwordFlag := fs.String("password", "", "Password (register only; prompts if omitted)")
	name := fs.String("name", "", "Display name (register only)")
	dataDir := fs.String("data", "./data", "Path to the data directory")
	backend := fs.String("backend", "jsonfile", "Storage backend: jsonfile or sqlite")

	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	// Allow overriding via env when the flags keep their defaults, so the
	// tool picks up the server's configuration.
	if v := os.Getenv("DATA_DIR"); v != "" && *dataDir == "./data" {
		*dataDir = v
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" && *backend == "jsonfile" {
		*backend = v
	}
	// ADMIN_EMAIL keeps listings consistent with the server, which never
	// shows the administrator account.
	adminIdentity := os.Getenv("ADMIN_EMAIL")

	manager, cleanup, err := openManager(*dataDir, *backend, adminIdentity)
	if err != nil {
		return err
	}
	defer cleanup()

	switch command {
	case "list":
		return listAccounts(manager, stdout)
	case "approve":
		if *user == "" {
			return fmt.Errorf("missing required flag: user")
		}
		return approve(manager, *user, stdout)
	case "delete":
		if *user == "" {
			return fmt.Errorf("missing required flag: user")
		}
		if err := manager.DeleteIdentity(*user); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Identity %s deleted with all of its records\n", *user)
		return nil
	case "register":
		if *user == "" {
			return fmt.Errorf("missing required flag: user")
		}
		return register(manager, *user, *name, *passwordFlag, stdin, stdout)
	}
	return nil
}

// openManager wires a lifecycle manager with a synthetic admin session.
// The operator already has filesystem access to the stores, so no
// password check gates these operations.
func openManager(dataDir, backend, adminIdentity string) (*accounts.Manager, func(), error) {
	var (
		creds    storage.CredentialBackend
		expenses storage.LedgerBackend
		cleanup  = func() {}
	)
	switch backend {
	case "sqlite":
		db, err := sqlite.New(filepath.Join(dataDir, "despesas.db"))
		if err != nil {
			return nil, nil, err
		}
		creds, expenses = db.Credentials(), db.Expenses()
		cleanup = func() { db.Close() }
	case "jsonfile":
		var err error
		creds, err = jsonfile.NewCredentialStore(filepath.Join(dataDir, "credentials.json"))
		if err != nil {
			return nil, nil, err
		}
		expenses, err = jsonfile.NewExpenseStore(filepath.Join(dataDir, "expenses.json"))
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", backend)
	}

	sessions, err := session.New("", "")
	if err != nil {
		return nil, nil, err
	}
	if err := sessions.Set(models.Session{Identity: "admin-cli", IsAdmin: true}); err != nil {
		return nil, nil, err
	}

	return accounts.NewManager(creds, ledger.New(expenses), sessions, adminIdentity, ""), cleanup, nil
}

func listAccounts(manager *accounts.Manager, stdout io.Writer) error {
	list, err := manager.Accounts()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(stdout, "No accounts registered")
		return nil
	}
	for _, c := range list {
		status := "pending"
		if c.Approved {
			status = "approved"
		}
		fmt.Fprintf(stdout, "%-10s %s", status, c.Identity)
		if c.DisplayName != "" {
			fmt.Fprintf(stdout, " (%s)", c.DisplayName)
		}
		fmt.Fprintln(stdout)
	}
	return nil
}

func approve(manager *accounts.Manager, user string, stdout io.Writer) error {
	err := manager.Approve(user)
	if err == accounts.ErrAlreadyApproved {
		fmt.Fprintf(stdout, "Identity %s is already approved\n", user)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Identity %s approved\n", user)
	return nil
}

func register(manager *accounts.Manager, user, name, password string, stdin io.Reader, stdout io.Writer) error {
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout) // Print newline after password input
	}
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password cannot be empty")
	}

	if _, err := manager.Register(user, password, name); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Identity %s registered, awaiting approval\n", user)
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	// Check if stdin is a terminal
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Fallback for non-terminal (e.g. tests, pipes)
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
