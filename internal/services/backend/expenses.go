package backend

import (
	"context"

	"github.com/benvon/expense-console/internal/apiclient"
	"github.com/benvon/expense-console/internal/models"
)

// ExpenseService is the /expenses resource
type ExpenseService struct {
	*Resource[models.Expense]
}

// NewExpenseService creates the expenses client
func NewExpenseService(client *apiclient.Client) *ExpenseService {
	return &ExpenseService{Resource: NewResource[models.Expense](client, "/expenses")}
}

// ListMine lists the caller's own expenses
func (s *ExpenseService) ListMine(ctx context.Context, pageable *models.Pageable) (*models.Page[models.Expense], error) {
	return s.listAt(ctx, s.path+"/my-expenses", pageable)
}
