package models

// Approval links an expense to an approver decision
type Approval struct {
	ID           int64         `json:"id,omitempty"`
	ExpenseID    int64         `json:"expenseId"`
	ApproverID   int64         `json:"approverId,omitempty"`
	Status       ExpenseStatus `json:"status,omitempty"`
	Comments     string        `json:"comments,omitempty"`
	ApprovalDate string        `json:"approvalDate,omitempty"`
}

// ApprovalAction is the body of PUT /approvals/{id}/action
type ApprovalAction struct {
	Status   ExpenseStatus `json:"status" validate:"required,approval_status"`
	Comments string        `json:"comments"`
}
