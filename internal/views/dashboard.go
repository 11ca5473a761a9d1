package views

import (
	"context"

	"github.com/benvon/expense-console/internal/models"
	"github.com/benvon/expense-console/internal/session"
)

// IdentitySource exposes the current identity
type IdentitySource interface {
	Identity() *session.Identity
}

// DashboardSummary is what the dashboard shows
type DashboardSummary struct {
	Greeting    string
	Subtitle    string
	Total       int
	Pending     int
	Approved    int
	Rejected    int
	TotalAmount float64
}

// Dashboard greets the user and summarizes their visible expenses
type Dashboard struct {
	identities IdentitySource
	expenses   ExpenseAPI
}

// NewDashboard creates the dashboard
func NewDashboard(identities IdentitySource, expenses ExpenseAPI) *Dashboard {
	return &Dashboard{identities: identities, expenses: expenses}
}

// Load builds the summary. Counts are computed from the loaded rows, not
// from the backend's totals.
func (d *Dashboard) Load(ctx context.Context) (*DashboardSummary, error) {
	identity := d.identities.Identity()
	summary := &DashboardSummary{
		Greeting: "Hello, User",
		Subtitle: "Welcome back to your expense dashboard.",
	}
	if identity != nil && identity.Username != "" {
		summary.Greeting = "Hello, " + identity.Username
	}

	rows, err := fetchExpenses(ctx, d.expenses, identity)
	if err != nil {
		return summary, err
	}
	for _, e := range rows {
		summary.Total++
		summary.TotalAmount += e.Amount
		switch e.EffectiveStatus() {
		case models.ExpenseStatusApproved:
			summary.Approved++
		case models.ExpenseStatusRejected:
			summary.Rejected++
		default:
			summary.Pending++
		}
	}
	return summary, nil
}
