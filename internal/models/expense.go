package models

// ExpenseStatus is the approval state the backend reports for an expense
type ExpenseStatus string

const (
	ExpenseStatusPending  ExpenseStatus = "PENDING"
	ExpenseStatusApproved ExpenseStatus = "APPROVED"
	ExpenseStatusRejected ExpenseStatus = "REJECTED"
)

// Expense represents an expense record as served by the backend
type Expense struct {
	ID          int64         `json:"id,omitempty"`
	EmployeeID  int64         `json:"employeeId,omitempty"`
	CategoryID  int64         `json:"categoryId,omitempty"`
	Amount      float64       `json:"amount"`
	Description string        `json:"description"`
	ExpenseDate string        `json:"expenseDate,omitempty"` // YYYY-MM-DD
	Status      ExpenseStatus `json:"status,omitempty"`
}

// EffectiveStatus returns the status, treating an empty one as pending
func (e *Expense) EffectiveStatus() ExpenseStatus {
	if e.Status == "" {
		return ExpenseStatusPending
	}
	return e.Status
}

// ExpenseCreateRequest is the payload for POST /expenses/post. Status is
// assigned by the backend.
type ExpenseCreateRequest struct {
	EmployeeID  int64   `json:"employeeId"`
	Amount      float64 `json:"amount" validate:"gt=0"`
	Description string  `json:"description" validate:"required,max=500"`
	ExpenseDate string  `json:"expenseDate" validate:"required,iso_date"`
	CategoryID  int64   `json:"categoryId" validate:"required"`
}
