package models

// User represents a backend user account
type User struct {
	ID           int64  `json:"id,omitempty"`
	Username     string `json:"username"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role,omitempty"`
	EmployeeID   string `json:"employeeId,omitempty"`
	DepartmentID int64  `json:"departmentId,omitempty"`
}

// Registration is the payload for POST /users/post
type Registration struct {
	Username   string `json:"username" validate:"required,min=3,max=50"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6"`
	Role       string `json:"role"`
	EmployeeID string `json:"employeeId"`
}

// LoginRequest is the payload for POST /authenticate
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued session token
type LoginResponse struct {
	JWT string `json:"jwt"`
}
