package views

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/benvon/expense-console/internal/apiclient"
	"github.com/benvon/expense-console/internal/logger"
	"github.com/benvon/expense-console/internal/models"
	"github.com/benvon/expense-console/internal/services/backend"
	"github.com/benvon/expense-console/internal/session"
	"github.com/benvon/expense-console/internal/validation"
	"go.uber.org/zap"
)

// Paging used by the expenses list
var (
	allExpensesPage = models.Pageable{Page: 0, Size: 50, Sort: "expenseDate,desc"}
	myExpensesPage  = models.Pageable{Page: 0, Size: 20}
)

// ExpenseAPI is the expenses resource as the views use it
type ExpenseAPI interface {
	List(ctx context.Context, pageable *models.Pageable) (*models.Page[models.Expense], error)
	ListMine(ctx context.Context, pageable *models.Pageable) (*models.Page[models.Expense], error)
	Create(ctx context.Context, body any) (*models.Expense, error)
	Delete(ctx context.Context, id int64) error
}

// CategoryAPI lists categories with the built-in fallback
type CategoryAPI interface {
	ListOrDefault(ctx context.Context, pageable *models.Pageable) ([]models.Category, bool)
}

// ApprovalAPI finds and acts on approvals
type ApprovalAPI interface {
	FindForExpense(ctx context.Context, expenseID int64) (*models.Approval, error)
	Act(ctx context.Context, approvalID int64, action models.ApprovalAction) (*models.Approval, error)
}

// ReceiptAPI stores and fetches receipt files
type ReceiptAPI interface {
	Upload(ctx context.Context, expenseID int64, fileName, contentType string, content io.Reader) (*models.Receipt, error)
	Download(ctx context.Context, fileName string) ([]byte, string, error)
	ListByExpense(ctx context.Context, expenseID int64) ([]models.Receipt, error)
}

// Ensure the backend clients satisfy the view interfaces
var (
	_ ExpenseAPI  = (*backend.ExpenseService)(nil)
	_ CategoryAPI = (*backend.CategoryService)(nil)
	_ ApprovalAPI = (*backend.ApprovalService)(nil)
	_ ReceiptAPI  = (*backend.ReceiptService)(nil)
)

// ExpenseForm is the create-expense form
type ExpenseForm struct {
	Amount      float64
	Description string
	ExpenseDate string
	CategoryID  int64
}

// ReceiptFile is a receipt picked for upload
type ReceiptFile struct {
	Name string
	Data []byte
}

// ExpensesPage lists, creates and acts on expenses
type ExpensesPage struct {
	identities IdentitySource
	expenses   ExpenseAPI
	categories CategoryAPI
	approvals  ApprovalAPI
	receipts   ReceiptAPI
	logger     *zap.Logger

	mu                sync.Mutex
	rows              []models.Expense
	categoryList      []models.Category
	defaultCategories bool
	receiptCache      map[int64][]models.Receipt
	alert             string
}

// NewExpensesPage wires the page to its backend clients
func NewExpensesPage(identities IdentitySource, svc *backend.Services, log *zap.Logger) *ExpensesPage {
	return newExpensesPage(identities, svc.Expenses, svc.Categories, svc.Approvals, svc.Receipts, log)
}

func newExpensesPage(identities IdentitySource, expenses ExpenseAPI, categories CategoryAPI, approvals ApprovalAPI, receipts ReceiptAPI, log *zap.Logger) *ExpensesPage {
	if log == nil {
		log = zap.NewNop()
	}
	return &ExpensesPage{
		identities:   identities,
		expenses:     expenses,
		categories:   categories,
		approvals:    approvals,
		receipts:     receipts,
		logger:       log,
		receiptCache: make(map[int64][]models.Receipt),
	}
}

// fetchExpenses lists every expense for approvers and the caller's own
// expenses for everyone else
func fetchExpenses(ctx context.Context, api ExpenseAPI, identity *session.Identity) ([]models.Expense, error) {
	var (
		page *models.Page[models.Expense]
		err  error
	)
	if identity.CanApprove() {
		p := allExpensesPage
		page, err = api.List(ctx, &p)
	} else {
		p := myExpensesPage
		page, err = api.ListMine(ctx, &p)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch expenses: %w", err)
	}
	return page.Items(), nil
}

// Title is the heading of the list
func (p *ExpensesPage) Title() string {
	if p.identities.Identity().CanApprove() {
		return "All Expenses"
	}
	return "My Expenses"
}

// Load refreshes the expense rows
func (p *ExpensesPage) Load(ctx context.Context) error {
	rows, err := fetchExpenses(ctx, p.expenses, p.identities.Identity())

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.logger.Warn("expenses_fetch_failed", zap.String("error", logger.SanitizeError(err)))
		p.alert = describe(err, MsgViewDenied)
		return err
	}
	p.rows = rows
	p.alert = ""
	return nil
}

// Expenses returns a copy of the loaded rows
func (p *ExpensesPage) Expenses() []models.Expense {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Expense(nil), p.rows...)
}

// PendingCount counts loaded rows awaiting a decision
func (p *ExpensesPage) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for i := range p.rows {
		if p.rows[i].EffectiveStatus() == models.ExpenseStatusPending {
			n++
		}
	}
	return n
}

// LoadCategories fetches categories, falling back to the defaults. The
// second result reports whether the defaults are in use.
func (p *ExpensesPage) LoadCategories(ctx context.Context) ([]models.Category, bool) {
	cats, usedDefaults := p.categories.ListOrDefault(ctx, nil)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.categoryList = cats
	p.defaultCategories = usedDefaults
	return append([]models.Category(nil), cats...), usedDefaults
}

// CategoryName resolves a category id against the loaded categories
func (p *ExpensesPage) CategoryName(id int64) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return models.CategoryName(p.categoryList, id)
}

// Create validates and submits a new expense, then uploads the receipt if
// one was given. When only the upload fails the created expense is returned
// together with an error wrapping ErrReceiptUpload.
func (p *ExpensesPage) Create(ctx context.Context, form ExpenseForm, receipt *ReceiptFile) (*models.Expense, error) {
	identity := p.identities.Identity()
	if identity == nil {
		p.setAlert(MsgAuthRequired)
		return nil, ErrNotAuthenticated
	}

	var receiptType string
	if receipt != nil {
		var err error
		if receiptType, err = validation.ValidateReceipt(receipt.Data); err != nil {
			p.setAlert(Message(err))
			return nil, err
		}
	}

	req := models.ExpenseCreateRequest{
		EmployeeID:  identity.ID,
		Amount:      form.Amount,
		Description: validation.SanitizeText(form.Description),
		ExpenseDate: form.ExpenseDate,
		CategoryID:  form.CategoryID,
	}
	if err := validation.Validate.Struct(req); err != nil {
		p.setAlert(Message(err))
		return nil, err
	}

	created, err := p.expenses.Create(ctx, req)
	if err != nil {
		p.logger.Warn("expense_create_failed", zap.String("error", logger.SanitizeError(err)))
		p.setAlert(Message(err))
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}
	p.logger.Info("expense_created", zap.Int64("expense_id", created.ID))

	var uploadErr error
	if receipt != nil && created.ID != 0 {
		if _, err := p.receipts.Upload(ctx, created.ID, receipt.Name, receiptType, bytes.NewReader(receipt.Data)); err != nil {
			p.logger.Warn("receipt_upload_failed",
				zap.Int64("expense_id", created.ID),
				zap.String("error", logger.SanitizeError(err)),
			)
			uploadErr = fmt.Errorf("%w: %w", ErrReceiptUpload, err)
		} else {
			p.forgetReceipts(created.ID)
		}
	}

	_ = p.Load(ctx)
	if uploadErr != nil {
		p.setAlert(MsgReceiptUploadFailed)
	}
	return created, uploadErr
}

// Approve approves an expense
func (p *ExpensesPage) Approve(ctx context.Context, expenseID int64, comments string) error {
	return p.act(ctx, expenseID, models.ExpenseStatusApproved, comments)
}

// Reject rejects an expense
func (p *ExpensesPage) Reject(ctx context.Context, expenseID int64, comments string) error {
	return p.act(ctx, expenseID, models.ExpenseStatusRejected, comments)
}

// act finds the approval for the expense and records the decision. When the
// backend call fails the local row still shows the chosen status.
func (p *ExpensesPage) act(ctx context.Context, expenseID int64, status models.ExpenseStatus, comments string) error {
	if !p.identities.Identity().CanApprove() {
		p.setAlert(MsgNotPermitted)
		return ErrNotPermitted
	}
	if comments == "" {
		comments = fmt.Sprintf("%s via expensectl", status)
	}
	action := models.ApprovalAction{Status: status, Comments: comments}

	err := p.submitAction(ctx, expenseID, action)
	if err == nil {
		p.logger.Info("approval_recorded",
			zap.Int64("expense_id", expenseID),
			zap.String("status", string(status)),
		)
		_ = p.Load(ctx)
		return nil
	}

	p.logger.Warn("approval_failed",
		zap.Int64("expense_id", expenseID),
		zap.String("error", logger.SanitizeError(err)),
	)

	p.mu.Lock()
	p.alert = approvalMessage(err)
	for i := range p.rows {
		if p.rows[i].ID == expenseID {
			p.rows[i].Status = status
		}
	}
	p.mu.Unlock()
	return err
}

func (p *ExpensesPage) submitAction(ctx context.Context, expenseID int64, action models.ApprovalAction) error {
	if err := validation.Validate.Struct(action); err != nil {
		return err
	}
	approval, err := p.approvals.FindForExpense(ctx, expenseID)
	if err != nil {
		return err
	}
	if _, err := p.approvals.Act(ctx, approval.ID, action); err != nil {
		return fmt.Errorf("failed to record approval %d: %w", approval.ID, err)
	}
	return nil
}

func approvalMessage(err error) string {
	switch {
	case errors.Is(err, backend.ErrApprovalNotFound):
		return MsgApprovalNotFound
	case apiclient.IsForbidden(err):
		return MsgApprovalDenied
	case apiclient.IsNotFound(err):
		return MsgApprovalNotFound
	case apiclient.IsUnauthorized(err):
		return MsgApprovalAuth
	case apiclient.IsTransport(err):
		return MsgNetwork
	default:
		return "Approval failed: " + err.Error()
	}
}

// Delete removes an expense. Only admins may delete.
func (p *ExpensesPage) Delete(ctx context.Context, expenseID int64) error {
	if !p.identities.Identity().IsAdmin() {
		p.setAlert(MsgNotPermitted)
		return ErrNotPermitted
	}
	if err := p.expenses.Delete(ctx, expenseID); err != nil {
		p.logger.Warn("expense_delete_failed",
			zap.Int64("expense_id", expenseID),
			zap.String("error", logger.SanitizeError(err)),
		)
		p.setAlert(MsgDeleteFailed)
		return fmt.Errorf("failed to delete expense %d: %w", expenseID, err)
	}
	p.forgetReceipts(expenseID)
	_ = p.Load(ctx)
	return nil
}

// Receipts returns the receipts of an expense, fetching them once per page
func (p *ExpensesPage) Receipts(ctx context.Context, expenseID int64) ([]models.Receipt, error) {
	p.mu.Lock()
	cached, ok := p.receiptCache[expenseID]
	p.mu.Unlock()
	if ok {
		return cached, nil
	}

	list, err := p.receipts.ListByExpense(ctx, expenseID)
	if err != nil {
		p.setAlert(MsgReceiptsLoadFailed)
		return nil, fmt.Errorf("failed to load receipts for expense %d: %w", expenseID, err)
	}

	p.mu.Lock()
	p.receiptCache[expenseID] = list
	p.mu.Unlock()
	return list, nil
}

// DownloadReceipt fetches a receipt file
func (p *ExpensesPage) DownloadReceipt(ctx context.Context, fileName string) ([]byte, string, error) {
	data, contentType, err := p.receipts.Download(ctx, fileName)
	if err != nil {
		p.setAlert(MsgDownloadFailed)
		return nil, "", fmt.Errorf("failed to download receipt %s: %w", fileName, err)
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

// Alert returns the current page message
func (p *ExpensesPage) Alert() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.alert
}

func (p *ExpensesPage) setAlert(msg string) {
	p.mu.Lock()
	p.alert = msg
	p.mu.Unlock()
}

func (p *ExpensesPage) forgetReceipts(expenseID int64) {
	p.mu.Lock()
	delete(p.receiptCache, expenseID)
	p.mu.Unlock()
}
