package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"despesas/internal/accounts"
	"despesas/internal/models"
)

// AdminViewModel is the data passed to the admin panel template.
type AdminViewModel struct {
	Accounts []models.Credential
	Error    string
	Notice   string
}

// AdminPanel renders every registered account with its approval state.
func (h *Handlers) AdminPanel(w http.ResponseWriter, r *http.Request) {
	h.renderAdmin(w, "", "")
}

func (h *Handlers) renderAdmin(w http.ResponseWriter, errMsg, notice string) {
	list, err := h.manager.Accounts()
	if err != nil {
		slog.Error("list accounts failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.render(w, "admin.html", AdminViewModel{Accounts: list, Error: errMsg, Notice: notice})
}

// Approve flips the approval flag for the submitted identity.
func (h *Handlers) Approve(w http.ResponseWriter, r *http.Request) {
	identity := h.formIdentity(w, r)
	if identity == "" {
		return
	}

	err := h.manager.Approve(identity)
	switch {
	case errors.Is(err, accounts.ErrAlreadyApproved):
		h.renderAdmin(w, "", fmt.Sprintf("%s is already approved", identity))
	case errors.Is(err, accounts.ErrUnknownIdentity):
		h.renderAdmin(w, fmt.Sprintf("No account registered for %s", identity), "")
	case err != nil:
		slog.Error("approve failed", "identity", identity, "error", err)
		h.renderAdmin(w, "An error occurred. Please try again.", "")
	default:
		h.renderAdmin(w, "", fmt.Sprintf("%s approved", identity))
	}
}

// DeleteIdentity removes an account and all of its expense records.
func (h *Handlers) DeleteIdentity(w http.ResponseWriter, r *http.Request) {
	identity := h.formIdentity(w, r)
	if identity == "" {
		return
	}

	if err := h.manager.DeleteIdentity(identity); err != nil {
		if errors.Is(err, accounts.ErrUnknownIdentity) {
			h.renderAdmin(w, fmt.Sprintf("No account registered for %s", identity), "")
			return
		}
		slog.Error("delete identity failed", "identity", identity, "error", err)
		h.renderAdmin(w, "An error occurred. Please try again.", "")
		return
	}
	h.renderAdmin(w, "", fmt.Sprintf("%s and their records deleted", identity))
}

func (h *Handlers) formIdentity(w http.ResponseWriter, r *http.Request) string {
	if err := r.ParseForm(); err != nil {
		h.renderAdmin(w, "Invalid form submission", "")
		return ""
	}
	identity := strings.TrimSpace(r.FormValue("identity"))
	if identity == "" {
		h.renderAdmin(w, "Identity is required", "")
	}
	return identity
}
