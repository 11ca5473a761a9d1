package models

// Department is an organizational unit
type Department struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description,omitempty"`
	ManagerID   int64  `json:"managerId,omitempty"`
}
