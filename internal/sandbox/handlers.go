package sandbox

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	logpkg "github.com/benvon/expense-console/internal/logger"
	"github.com/benvon/expense-console/internal/models"
	"github.com/benvon/expense-console/internal/request"
	"github.com/benvon/expense-console/internal/session"
	"github.com/benvon/expense-console/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HealthResponse is the /healthz body
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// health handles /healthz. mode=extended also reports the store.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	if r.URL.Query().Get("mode") == "extended" {
		checks := make(map[string]string)
		if len(s.store.Users()) == 0 {
			response.Status = "unhealthy"
			checks["store"] = "unhealthy: no accounts seeded"
			status = http.StatusServiceUnavailable
		} else {
			checks["store"] = "healthy"
		}
		response.Checks = checks
	}

	s.respondJSON(w, status, response)
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := validation.Validate.Struct(req); err != nil {
		s.respondFieldErrors(w, r, validation.FieldErrors(err))
		return
	}

	user, err := s.store.Authenticate(req.Username, req.Password)
	if err != nil {
		s.logger.Info("sandbox_login_rejected", zap.String("username", logpkg.SanitizeString(req.Username, 100)))
		s.respondError(w, r, http.StatusUnauthorized, "Bad credentials")
		return
	}
	token, err := s.signer.Mint(user)
	if err != nil {
		s.logger.Error("failed_to_mint_token", zap.Error(err))
		s.respondError(w, r, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	s.respondJSON(w, http.StatusOK, models.LoginResponse{JWT: token})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var reg models.Registration
	if !s.decodeJSON(w, r, &reg) {
		return
	}
	if err := validation.Validate.Struct(reg); err != nil {
		s.respondFieldErrors(w, r, validation.FieldErrors(err))
		return
	}
	if _, ok := session.ParseRole(reg.Role); reg.Role != "" && !ok {
		s.respondFieldErrors(w, r, map[string]string{"role": "role is invalid"})
		return
	}

	user, err := s.store.Register(&reg)
	if errors.Is(err, errUsernameTaken) {
		s.respondFieldErrors(w, r, map[string]string{"username": "Username is already taken"})
		return
	}
	if err != nil {
		s.logger.Error("failed_to_register_user", zap.Error(err))
		s.respondError(w, r, http.StatusInternalServerError, "Failed to register user")
		return
	}
	s.respondJSON(w, http.StatusOK, user)
}

var expenseKeys = map[string]func(models.Expense) string{
	"id":          func(e models.Expense) string { return fmt.Sprintf("%020d", e.ID) },
	"expenseDate": func(e models.Expense) string { return e.ExpenseDate },
	"amount":      func(e models.Expense) string { return fmt.Sprintf("%020.2f", e.Amount) },
	"status":      func(e models.Expense) string { return string(e.Status) },
}

func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, paginate(r, s.store.Expenses(nil), expenseKeys))
}

func (s *Server) myExpenses(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	s.respondJSON(w, http.StatusOK, paginate(r, s.store.Expenses(&user.ID), expenseKeys))
}

func (s *Server) createExpense(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	var req models.ExpenseCreateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := validation.Validate.Struct(req); err != nil {
		s.respondFieldErrors(w, r, validation.FieldErrors(err))
		return
	}
	if req.EmployeeID == 0 {
		req.EmployeeID = user.ID
	}
	if req.EmployeeID != user.ID && !rolesOf(user).Has(session.RoleAdmin) {
		s.respondError(w, r, http.StatusForbidden, "Access Denied")
		return
	}
	req.Description = validation.SanitizeText(req.Description)
	s.respondJSON(w, http.StatusOK, s.store.CreateExpense(req, user.Username))
}

// ownedExpense loads the path expense and checks the caller may see it
func (s *Server) ownedExpense(w http.ResponseWriter, r *http.Request) (models.Expense, bool) {
	id, ok := s.pathID(w, r)
	if !ok {
		return models.Expense{}, false
	}
	expense, err := s.store.Expense(id)
	if err != nil {
		s.respondError(w, r, http.StatusNotFound, "Expense not found")
		return models.Expense{}, false
	}
	user := request.UserFromContext(r)
	if expense.EmployeeID != user.ID && !rolesOf(user).Has(session.RoleAdmin, session.RoleManager, session.RoleFinanceManager) {
		s.respondError(w, r, http.StatusForbidden, "Access Denied")
		return models.Expense{}, false
	}
	return expense, true
}

func (s *Server) getExpense(w http.ResponseWriter, r *http.Request) {
	if expense, ok := s.ownedExpense(w, r); ok {
		s.respondJSON(w, http.StatusOK, expense)
	}
}

func (s *Server) updateExpense(w http.ResponseWriter, r *http.Request) {
	expense, ok := s.ownedExpense(w, r)
	if !ok {
		return
	}
	var req models.ExpenseCreateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := validation.Validate.Struct(req); err != nil {
		s.respondFieldErrors(w, r, validation.FieldErrors(err))
		return
	}
	req.Description = validation.SanitizeText(req.Description)
	updated, err := s.store.UpdateExpense(expense.ID, req, request.UserFromContext(r).Username)
	if err != nil {
		s.respondError(w, r, http.StatusNotFound, "Expense not found")
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteExpense(id, request.UserFromContext(r).Username); err != nil {
		s.respondError(w, r, http.StatusNotFound, "Expense not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listApprovals(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, paginate[models.Approval](r, s.store.Approvals(), nil))
}

func (s *Server) getApproval(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	approval, err := s.store.Approval(id)
	if err != nil {
		s.respondError(w, r, http.StatusNotFound, "Approval not found")
		return
	}
	s.respondJSON(w, http.StatusOK, approval)
}

func (s *Server) actOnApproval(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var action models.ApprovalAction
	if !s.decodeJSON(w, r, &action) {
		return
	}
	if err := validation.Validate.Struct(action); err != nil {
		s.respondFieldErrors(w, r, validation.FieldErrors(err))
		return
	}
	action.Comments = validation.SanitizeText(action.Comments)

	approval, err := s.store.Act(id, action, *request.UserFromContext(r))
	if err != nil {
		s.respondError(w, r, http.StatusNotFound, "Approval not found")
		return
	}
	s.respondJSON(w, http.StatusOK, approval)
}

func (s *Server) listReceipts(w http.ResponseWriter, r *http.Request) {
	var filter *int64
	if raw := r.URL.Query().Get("expenseId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.respondFieldErrors(w, r, map[string]string{"expenseId": "expenseId must be a number"})
			return
		}
		filter = &id
	}
	s.respondJSON(w, http.StatusOK, paginate[models.Receipt](r, s.store.Receipts(filter), nil))
}

func (s *Server) receiptsForExpense(w http.ResponseWriter, r *http.Request) {
	expense, ok := s.ownedExpense(w, r)
	if !ok {
		return
	}
	receipts := s.store.Receipts(&expense.ID)
	if receipts == nil {
		receipts = []models.Receipt{}
	}
	s.respondJSON(w, http.StatusOK, receipts)
}

func (s *Server) uploadReceipt(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(validation.MaxReceiptSize); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "Invalid multipart body")
		return
	}
	expenseID, err := strconv.ParseInt(r.FormValue("expenseId"), 10, 64)
	if err != nil {
		s.respondFieldErrors(w, r, map[string]string{"expenseId": "expenseId is required"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondFieldErrors(w, r, map[string]string{"file": "file is required"})
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, validation.MaxReceiptSize+1))
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "Failed to read file")
		return
	}
	fileType, err := validation.ValidateReceipt(data)
	if err != nil {
		s.respondFieldErrors(w, r, map[string]string{"file": err.Error()})
		return
	}

	expense, err := s.store.Expense(expenseID)
	if err != nil {
		s.respondError(w, r, http.StatusNotFound, "Expense not found")
		return
	}
	user := request.UserFromContext(r)
	if expense.EmployeeID != user.ID && !rolesOf(user).Has(session.RoleAdmin) {
		s.respondError(w, r, http.StatusForbidden, "Access Denied")
		return
	}

	receipt, err := s.store.AddReceipt(expenseID, header.Filename, fileType, data)
	if err != nil {
		s.respondError(w, r, http.StatusNotFound, "Expense not found")
		return
	}
	s.respondJSON(w, http.StatusOK, receipt)
}

func (s *Server) receiptFile(w http.ResponseWriter, r *http.Request) {
	data, fileType, err := s.store.ReceiptFile(mux.Vars(r)["name"])
	if err != nil {
		s.respondError(w, r, http.StatusNotFound, "File not found")
		return
	}
	w.Header().Set("Content-Type", fileType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("failed_to_write_receipt", zap.Error(err))
	}
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, paginate[models.User](r, s.store.Users(), nil))
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	caller := request.UserFromContext(r)
	if caller.ID != id && !rolesOf(caller).Has(session.RoleAdmin, session.RoleManager, session.RoleFinanceManager) {
		s.respondError(w, r, http.StatusForbidden, "Access Denied")
		return
	}
	user, err := s.store.User(id)
	if err != nil {
		s.respondError(w, r, http.StatusNotFound, "User not found")
		return
	}
	s.respondJSON(w, http.StatusOK, user)
}

func (s *Server) listAuditLogs(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, paginate[models.AuditLog](r, s.store.AuditLogs(), nil))
}

var categoryKeys = map[string]func(models.Category) string{
	"categoryName": func(c models.Category) string { return c.CategoryName },
}

var departmentKeys = map[string]func(models.Department) string{
	"name": func(d models.Department) string { return d.Name },
}

// registerCRUD mounts the shared list/get/create/update/delete routes for a
// table. Reads are open to any user, writes need the admin role.
func registerCRUD[T any](s *Server, router *mux.Router, path string, t *table[T], keys map[string]func(T) string) {
	router.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		s.respondJSON(w, http.StatusOK, paginate(r, listRows(s.store, t), keys))
	}).Methods(http.MethodGet)

	router.HandleFunc(path+"/{id:[0-9]+}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.pathID(w, r)
		if !ok {
			return
		}
		row, err := getRow(s.store, t, id)
		if err != nil {
			s.respondError(w, r, http.StatusNotFound, "Not found")
			return
		}
		s.respondJSON(w, http.StatusOK, row)
	}).Methods(http.MethodGet)

	router.HandleFunc(path+"/post", s.requireAdmin(func(w http.ResponseWriter, r *http.Request) {
		var row T
		if !s.decodeJSON(w, r, &row) {
			return
		}
		if err := validation.Validate.Struct(row); err != nil {
			s.respondFieldErrors(w, r, validation.FieldErrors(err))
			return
		}
		s.respondJSON(w, http.StatusOK, insertRow(s.store, t, row))
	})).Methods(http.MethodPost)

	router.HandleFunc(path+"/{id:[0-9]+}", s.requireAdmin(func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.pathID(w, r)
		if !ok {
			return
		}
		var row T
		if !s.decodeJSON(w, r, &row) {
			return
		}
		if err := validation.Validate.Struct(row); err != nil {
			s.respondFieldErrors(w, r, validation.FieldErrors(err))
			return
		}
		updated, err := putRow(s.store, t, id, row)
		if err != nil {
			s.respondError(w, r, http.StatusNotFound, "Not found")
			return
		}
		s.respondJSON(w, http.StatusOK, updated)
	})).Methods(http.MethodPut)

	router.HandleFunc(path+"/{id:[0-9]+}", s.requireAdmin(func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.pathID(w, r)
		if !ok {
			return
		}
		if err := removeRow(s.store, t, id); err != nil {
			s.respondError(w, r, http.StatusNotFound, "Not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})).Methods(http.MethodDelete)
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return id, true
}
