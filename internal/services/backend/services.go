package backend

import (
	"github.com/benvon/expense-console/internal/apiclient"
	"github.com/benvon/expense-console/internal/models"
	"go.uber.org/zap"
)

// Services bundles every resource client over one adapter
type Services struct {
	Auth        *AuthService
	Expenses    *ExpenseService
	Categories  *CategoryService
	Approvals   *ApprovalService
	Receipts    *ReceiptService
	AuditLogs   *Resource[models.AuditLog]
	Departments *Resource[models.Department]
	Users       *Resource[models.User]
}

// New wires all resource clients to client
func New(client *apiclient.Client, log *zap.Logger) *Services {
	if log == nil {
		log = zap.NewNop()
	}
	return &Services{
		Auth:        NewAuthService(client),
		Expenses:    NewExpenseService(client),
		Categories:  NewCategoryService(client, log),
		Approvals:   NewApprovalService(client, log),
		Receipts:    NewReceiptService(client),
		AuditLogs:   NewResource[models.AuditLog](client, "/audit-logs"),
		Departments: NewResource[models.Department](client, "/departments"),
		Users:       NewResource[models.User](client, "/users"),
	}
}
