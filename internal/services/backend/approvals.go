package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/benvon/expense-console/internal/apiclient"
	"github.com/benvon/expense-console/internal/models"
	"go.uber.org/zap"
)

// ErrApprovalNotFound means no approval record references the expense
var ErrApprovalNotFound = errors.New("no approval record found for expense")

// ApprovalService is the /approvals resource
type ApprovalService struct {
	*Resource[models.Approval]
	logger *zap.Logger
}

// NewApprovalService creates the approvals client
func NewApprovalService(client *apiclient.Client, log *zap.Logger) *ApprovalService {
	return &ApprovalService{
		Resource: NewResource[models.Approval](client, "/approvals"),
		logger:   log,
	}
}

// Act records an approve/reject decision on an approval
func (s *ApprovalService) Act(ctx context.Context, approvalID int64, action models.ApprovalAction) (*models.Approval, error) {
	var out models.Approval
	path := fmt.Sprintf("%s/%d/action", s.path, approvalID)
	if err := s.client.Do(ctx, http.MethodPut, path, nil, action, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindForExpense returns the approval for an expense. The API has no lookup
// by expense, so this lists approvals and scans for the first match.
func (s *ApprovalService) FindForExpense(ctx context.Context, expenseID int64) (*models.Approval, error) {
	page, err := s.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list approvals: %w", err)
	}
	for _, approval := range page.Items() {
		if approval.ExpenseID == expenseID {
			s.logger.Debug("approval_found_for_expense",
				zap.Int64("expense_id", expenseID),
				zap.Int64("approval_id", approval.ID),
			)
			found := approval
			return &found, nil
		}
	}
	return nil, fmt.Errorf("%w %d", ErrApprovalNotFound, expenseID)
}
