package handlers

import (
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// StatsCategoryItem represents a category with its spending statistics.
type StatsCategoryItem struct {
	Category   string
	Total      decimal.Decimal
	Count      int
	Percentage float64
	Color      string
}

// StatsViewModel is the data passed to the statistics view template.
type StatsViewModel struct {
	Year           int
	Month          int
	MonthName      string
	Total          decimal.Decimal
	Categories     []StatsCategoryItem
	PrevYear       int
	PrevMonth      int
	NextYear       int
	NextMonth      int
	IsCurrentMonth bool
}

// Statistics renders per-category totals for the selected month.
func (h *Handlers) Statistics(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	year := now.Year()
	month := int(now.Month())

	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		if y, err := strconv.Atoi(yearStr); err == nil {
			year = y
		}
	}
	if monthStr := r.URL.Query().Get("month"); monthStr != "" {
		if m, err := strconv.Atoi(monthStr); err == nil && m >= 1 && m <= 12 {
			month = m
		}
	}

	expenses, err := h.gateway.List()
	if err != nil {
		slog.Error("statistics failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	type bucket struct {
		total decimal.Decimal
		count int
	}
	buckets := make(map[string]*bucket)
	total := decimal.Zero

	for _, e := range expenses {
		if e.OccurredAt.Year() != year || int(e.OccurredAt.Month()) != month {
			continue
		}
		cat := e.Category
		if cat == "" {
			cat = "other"
		}
		if _, ok := buckets[cat]; !ok {
			buckets[cat] = &bucket{total: decimal.Zero}
		}
		buckets[cat].total = buckets[cat].total.Add(e.Amount)
		buckets[cat].count++
		total = total.Add(e.Amount)
	}

	categoryItems := make([]StatsCategoryItem, 0, len(buckets))
	for cat, b := range buckets {
		percentage := 0.0
		if total.IsPositive() {
			percentage, _ = b.total.Div(total).Mul(decimal.NewFromInt(100)).Float64()
		}
		categoryItems = append(categoryItems, StatsCategoryItem{
			Category:   cat,
			Total:      b.total,
			Count:      b.count,
			Percentage: percentage,
			Color:      categoryColor(cat),
		})
	}
	// Largest spenders first, ties broken by name for stable rendering.
	sort.Slice(categoryItems, func(i, j int) bool {
		a, b := categoryItems[i], categoryItems[j]
		if !a.Total.Equal(b.Total) {
			return a.Total.GreaterThan(b.Total)
		}
		return a.Category < b.Category
	})

	prevDate := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	nextDate := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)

	h.render(w, "stats.html", StatsViewModel{
		Year:           year,
		Month:          month,
		MonthName:      time.Month(month).String(),
		Total:          total,
		Categories:     categoryItems,
		PrevYear:       prevDate.Year(),
		PrevMonth:      int(prevDate.Month()),
		NextYear:       nextDate.Year(),
		NextMonth:      int(nextDate.Month()),
		IsCurrentMonth: year == now.Year() && month == int(now.Month()),
	})
}
