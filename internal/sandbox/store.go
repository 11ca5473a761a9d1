// Package sandbox is an in-memory stand-in for the expense API, used for
// local development of the console and in end-to-end tests. It keeps only
// the behavior the console depends on: routes, payload shapes, role checks
// and the approval record created with every expense.
package sandbox

import (
	"errors"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/benvon/expense-console/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	errNotFound      = errors.New("not found")
	errUsernameTaken = errors.New("username already taken")
	errBadLogin      = errors.New("bad credentials")
)

// table is an id-keyed collection with a sequence
type table[T any] struct {
	seq   int64
	rows  map[int64]T
	setID func(*T, int64)
}

func newTable[T any](setID func(*T, int64)) *table[T] {
	return &table[T]{rows: make(map[int64]T), setID: setID}
}

func (t *table[T]) insert(row T) T {
	t.seq++
	t.setID(&row, t.seq)
	t.rows[t.seq] = row
	return row
}

func (t *table[T]) get(id int64) (T, bool) {
	row, ok := t.rows[id]
	return row, ok
}

func (t *table[T]) put(id int64, row T) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	t.setID(&row, id)
	t.rows[id] = row
	return true
}

func (t *table[T]) remove(id int64) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	return true
}

// all returns rows ordered by id
func (t *table[T]) all() []T {
	ids := make([]int64, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.rows[id])
	}
	return out
}

type storedReceipt struct {
	models.Receipt
	data []byte
}

// Store holds the sandbox data behind one lock
type Store struct {
	mu          sync.Mutex
	now         func() time.Time
	users       *table[models.User]
	passwords   map[string][]byte
	expenses    *table[models.Expense]
	categories  *table[models.Category]
	approvals   *table[models.Approval]
	receipts    *table[storedReceipt]
	departments *table[models.Department]
	auditLogs   *table[models.AuditLog]
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		now:         time.Now,
		users:       newTable(func(u *models.User, id int64) { u.ID = id }),
		passwords:   make(map[string][]byte),
		expenses:    newTable(func(e *models.Expense, id int64) { e.ID = id }),
		categories:  newTable(func(c *models.Category, id int64) { c.ID = id }),
		approvals:   newTable(func(a *models.Approval, id int64) { a.ID = id }),
		receipts:    newTable(func(r *storedReceipt, id int64) { r.ID = id }),
		departments: newTable(func(d *models.Department, id int64) { d.ID = id }),
		auditLogs:   newTable(func(l *models.AuditLog, id int64) { l.ID = id }),
	}
}

// SeedUser is an account created at startup
type SeedUser struct {
	Username string
	Password string
	Role     string
}

// DefaultSeed is the set of accounts the sandbox starts with, one per role
var DefaultSeed = []SeedUser{
	{Username: "admin", Password: "admin123", Role: "ADMIN"},
	{Username: "finance", Password: "finance123", Role: "FINANCE_MANAGER"},
	{Username: "manager", Password: "manager123", Role: "MANAGER"},
	{Username: "employee", Password: "employee123", Role: "EMPLOYEE"},
}

// Seed adds accounts and the starter categories and departments
func (s *Store) Seed(users []SeedUser) error {
	for _, u := range users {
		if _, err := s.Register(&models.Registration{
			Username:   u.Username,
			Email:      u.Username + "@example.com",
			Password:   u.Password,
			Role:       u.Role,
			EmployeeID: "EMP-" + u.Username,
		}); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range models.DefaultCategories() {
		s.categories.insert(models.Category{CategoryName: c.CategoryName})
	}
	s.departments.insert(models.Department{Name: "Engineering"})
	s.departments.insert(models.Department{Name: "Finance"})
	return nil
}

// Register creates a user with a bcrypt-hashed password
func (s *Store) Register(reg *models.Registration) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.MinCost)
	if err != nil {
		return models.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.passwords[reg.Username]; taken {
		return models.User{}, errUsernameTaken
	}
	role := reg.Role
	if role == "" {
		role = "EMPLOYEE"
	}
	user := s.users.insert(models.User{
		Username:   reg.Username,
		Email:      reg.Email,
		Role:       role,
		EmployeeID: reg.EmployeeID,
	})
	s.passwords[reg.Username] = hash
	s.auditLocked("CREATE", "USER", user.ID, reg.Username, "user registered")
	return user, nil
}

// Authenticate checks a username and password
func (s *Store) Authenticate(username, password string) (models.User, error) {
	s.mu.Lock()
	hash, ok := s.passwords[username]
	var user models.User
	if ok {
		for _, u := range s.users.all() {
			if u.Username == username {
				user = u
				break
			}
		}
	}
	s.mu.Unlock()

	if !ok {
		return models.User{}, errBadLogin
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return models.User{}, errBadLogin
	}
	return user, nil
}

// CreateExpense stores an expense as PENDING together with its approval record
func (s *Store) CreateExpense(req models.ExpenseCreateRequest, actor string) models.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	expense := s.expenses.insert(models.Expense{
		EmployeeID:  req.EmployeeID,
		CategoryID:  req.CategoryID,
		Amount:      req.Amount,
		Description: req.Description,
		ExpenseDate: req.ExpenseDate,
		Status:      models.ExpenseStatusPending,
	})
	s.approvals.insert(models.Approval{ExpenseID: expense.ID, Status: models.ExpenseStatusPending})
	s.auditLocked("CREATE", "EXPENSE", expense.ID, actor, expense.Description)
	return expense
}

// Expenses lists expenses, optionally only those of one employee
func (s *Store) Expenses(employeeID *int64) []models.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.expenses.all()
	if employeeID == nil {
		return all
	}
	out := make([]models.Expense, 0, len(all))
	for _, e := range all {
		if e.EmployeeID == *employeeID {
			out = append(out, e)
		}
	}
	return out
}

// Expense fetches one expense
func (s *Store) Expense(id int64) (models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses.get(id)
	if !ok {
		return models.Expense{}, errNotFound
	}
	return e, nil
}

// UpdateExpense replaces the editable fields of an expense
func (s *Store) UpdateExpense(id int64, req models.ExpenseCreateRequest, actor string) (models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.expenses.get(id)
	if !ok {
		return models.Expense{}, errNotFound
	}
	current.Amount = req.Amount
	current.Description = req.Description
	current.ExpenseDate = req.ExpenseDate
	current.CategoryID = req.CategoryID
	s.expenses.put(id, current)
	s.auditLocked("UPDATE", "EXPENSE", id, actor, current.Description)
	return current, nil
}

// DeleteExpense removes an expense with its approvals and receipts
func (s *Store) DeleteExpense(id int64, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.expenses.remove(id) {
		return errNotFound
	}
	for _, a := range s.approvals.all() {
		if a.ExpenseID == id {
			s.approvals.remove(a.ID)
		}
	}
	for _, r := range s.receipts.all() {
		if r.ExpenseID == id {
			s.receipts.remove(r.ID)
		}
	}
	s.auditLocked("DELETE", "EXPENSE", id, actor, "")
	return nil
}

// Approvals lists approval records
func (s *Store) Approvals() []models.Approval {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.approvals.all()
}

// Approval fetches one approval record
func (s *Store) Approval(id int64) (models.Approval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.approvals.get(id)
	if !ok {
		return models.Approval{}, errNotFound
	}
	return a, nil
}

// Act records a decision on an approval and mirrors it onto the expense
func (s *Store) Act(id int64, action models.ApprovalAction, approver models.User) (models.Approval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	approval, ok := s.approvals.get(id)
	if !ok {
		return models.Approval{}, errNotFound
	}
	approval.Status = action.Status
	approval.Comments = action.Comments
	approval.ApproverID = approver.ID
	approval.ApprovalDate = s.now().UTC().Format(time.RFC3339)
	s.approvals.put(id, approval)

	if expense, ok := s.expenses.get(approval.ExpenseID); ok {
		expense.Status = action.Status
		s.expenses.put(expense.ID, expense)
	}
	s.auditLocked(string(action.Status), "APPROVAL", id, approver.Username, action.Comments)
	return approval, nil
}

// AddReceipt stores a receipt file for an expense
func (s *Store) AddReceipt(expenseID int64, fileName, fileType string, data []byte) (models.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses.get(expenseID); !ok {
		return models.Receipt{}, errNotFound
	}
	stored := s.receipts.insert(storedReceipt{
		Receipt: models.Receipt{
			ExpenseID:  expenseID,
			FileType:   fileType,
			UploadDate: s.now().UTC().Format(time.RFC3339),
		},
		data: data,
	})
	stored.FileName = storedFileName(stored.ID, fileName)
	stored.FileURL = "/receipts/files/" + stored.FileName
	s.receipts.put(stored.ID, stored)
	return stored.Receipt, nil
}

// Receipts lists receipts, optionally for one expense
func (s *Store) Receipts(expenseID *int64) []models.Receipt {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Receipt
	for _, r := range s.receipts.all() {
		if expenseID == nil || r.ExpenseID == *expenseID {
			out = append(out, r.Receipt)
		}
	}
	return out
}

// ReceiptFile returns the stored bytes of a receipt by file name
func (s *Store) ReceiptFile(fileName string) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.receipts.all() {
		if r.FileName == fileName {
			return r.data, r.FileType, nil
		}
	}
	return nil, "", errNotFound
}

// AuditLogs lists the audit trail
func (s *Store) AuditLogs() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auditLogs.all()
}

func (s *Store) auditLocked(action, entity string, id int64, actor, details string) {
	s.auditLogs.insert(models.AuditLog{
		Action:      action,
		EntityType:  entity,
		EntityID:    id,
		PerformedBy: actor,
		Timestamp:   s.now().UTC().Format(time.RFC3339),
		Details:     details,
	})
}

// storedFileName prefixes the upload name with the receipt id so names are unique
func storedFileName(id int64, name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "receipt"
	}
	return strconv.FormatInt(id, 10) + "_" + name
}

// Users lists accounts
func (s *Store) Users() []models.User { return listRows(s, s.users) }

// User fetches one account
func (s *Store) User(id int64) (models.User, error) { return getRow(s, s.users, id) }

// Categories lists expense categories
func (s *Store) Categories() []models.Category { return listRows(s, s.categories) }

// Departments lists departments
func (s *Store) Departments() []models.Department { return listRows(s, s.departments) }

func listRows[T any](s *Store, t *table[T]) []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return t.all()
}

func getRow[T any](s *Store, t *table[T], id int64) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := t.get(id)
	if !ok {
		return row, errNotFound
	}
	return row, nil
}

func insertRow[T any](s *Store, t *table[T], row T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return t.insert(row)
}

func putRow[T any](s *Store, t *table[T], id int64, row T) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !t.put(id, row) {
		var zero T
		return zero, errNotFound
	}
	stored, _ := t.get(id)
	return stored, nil
}

func removeRow[T any](s *Store, t *table[T], id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !t.remove(id) {
		return errNotFound
	}
	return nil
}
