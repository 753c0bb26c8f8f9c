package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"despesas/internal/ledger"
	"despesas/internal/models"
	"despesas/internal/storage"
)

// CategoryDef defines the properties of a category.
type CategoryDef struct {
	ID    string
	Name  string
	Color string
}

var categories = []CategoryDef{
	{"food", "Food", "#60a5fa"},
	{"transport", "Transport", "#a78bfa"},
	{"entertainment", "Entertainment", "#f472b6"},
	{"utilities", "Utilities", "#fbbf24"},
	{"housing", "Housing", "#818cf8"},
	{"gifts", "Gifts", "#fb7185"},
	{"other", "Other", "#94a3b8"},
}

func categoryColor(category string) string {
	catLower := strings.ToLower(category)
	for _, c := range categories {
		if c.ID == catLower {
			return c.Color
		}
	}
	return "#94a3b8"
}

// ExpenseItem represents an expense in the list view.
type ExpenseItem struct {
	models.Expense
	Color string
}

// ExpenseGroup groups expenses by date.
type ExpenseGroup struct {
	Title string
	Date  string
	Total decimal.Decimal
	Items []ExpenseItem
}

// ListViewModel is the data passed to the list view template.
type ListViewModel struct {
	Identity   string
	IsAdmin    bool
	Total      decimal.Decimal
	Groups     []ExpenseGroup
	Categories []CategoryDef
	Error      string
}

// ListExpenses renders the current user's expenses grouped by day,
// newest day first.
func (h *Handlers) ListExpenses(w http.ResponseWriter, r *http.Request) {
	h.renderList(w, "")
}

func (h *Handlers) renderList(w http.ResponseWriter, errMsg string) {
	s, _ := h.sessions.Current()

	expenses, err := h.gateway.List()
	if err != nil {
		// A contended lock must not turn the whole page into a 500;
		// render what we can and tell the user to retry.
		if !errors.Is(err, storage.ErrStoreBusy) {
			slog.Error("list expenses failed", "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		expenses = nil
		if errMsg == "" {
			errMsg = busyMessage
		}
	}

	groupsMap := make(map[string]*ExpenseGroup)
	total := decimal.Zero

	for _, e := range expenses {
		dateStr := e.OccurredAt.Format("2006-01-02")
		if _, ok := groupsMap[dateStr]; !ok {
			groupsMap[dateStr] = &ExpenseGroup{Date: dateStr, Title: formatGroupTitle(e.OccurredAt)}
		}
		group := groupsMap[dateStr]
		group.Total = group.Total.Add(e.Amount)
		total = total.Add(e.Amount)

		group.Items = append(group.Items, ExpenseItem{
			Expense: e,
			Color:   categoryColor(e.Category),
		})
	}

	groups := make([]ExpenseGroup, 0, len(groupsMap))
	for _, g := range groupsMap {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Date > groups[j].Date })

	h.render(w, "list.html", ListViewModel{
		Identity:   s.Identity,
		IsAdmin:    s.IsAdmin,
		Total:      total,
		Groups:     groups,
		Categories: categories,
		Error:      errMsg,
	})
}

// CreateExpense handles the creation of a new expense from the list
// page's form.
func (h *Handlers) CreateExpense(w http.ResponseWriter, r *http.Request) {
	desc, amount, category, date, err := parseExpenseForm(r)
	if err != nil {
		h.renderList(w, err.Error())
		return
	}

	if _, err := h.gateway.Append(desc, amount, category, date); err != nil {
		if errors.Is(err, ledger.ErrInvalidAmount) {
			h.renderList(w, "Amount must not be negative")
			return
		}
		if errors.Is(err, storage.ErrStoreBusy) {
			h.renderList(w, busyMessage)
			return
		}
		slog.Error("create expense failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/expenses", http.StatusFound)
}

// DeleteExpense removes one of the current user's expenses.
func (h *Handlers) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := h.gateway.Remove(r.PathValue("id")); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			http.Error(w, "Expense not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, storage.ErrStoreBusy) {
			h.renderList(w, busyMessage)
			return
		}
		slog.Error("delete expense failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/expenses", http.StatusFound)
}

// ExportCSV streams the current user's records as a CSV download.
func (h *Handlers) ExportCSV(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.gateway.List()
	if err != nil {
		slog.Error("export failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="expenses.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"record_id", "description", "amount", "category", "occurred_at"})
	for _, e := range expenses {
		_ = cw.Write([]string{
			e.RecordID,
			e.Description,
			e.Amount.String(),
			e.Category,
			e.OccurredAt.Format("2006-01-02"),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		slog.Error("csv write failed", "error", err)
	}
}

func parseExpenseForm(r *http.Request) (desc string, amount decimal.Decimal, category string, date time.Time, err error) {
	if err := r.ParseForm(); err != nil {
		return "", decimal.Zero, "", time.Time{}, fmt.Errorf("invalid form submission")
	}

	amount, err = decimal.NewFromString(strings.TrimSpace(r.FormValue("amount")))
	if err != nil {
		return "", decimal.Zero, "", time.Time{}, fmt.Errorf("amount is required")
	}

	desc = strings.TrimSpace(r.FormValue("description"))
	if desc == "" {
		desc = "Expense"
	}
	category = r.FormValue("category")

	dateStr := r.FormValue("date")
	if dateStr == "" {
		return "", decimal.Zero, "", time.Time{}, fmt.Errorf("date is required")
	}
	date, err = time.Parse("2006-01-02", dateStr)
	if err != nil {
		return "", decimal.Zero, "", time.Time{}, fmt.Errorf("date must be YYYY-MM-DD")
	}
	return desc, amount, category, date, nil
}

func formatGroupTitle(date time.Time) string {
	dateStr := date.Format("2006-01-02")
	nowStr := time.Now().Format("2006-01-02")

	if dateStr == nowStr {
		return "TODAY"
	}
	yesterdayStr := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	if dateStr == yesterdayStr {
		return "YESTERDAY"
	}
	return strings.ToUpper(date.Format("Mon, 02 Jan '06"))
}
