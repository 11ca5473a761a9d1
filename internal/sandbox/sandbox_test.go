package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benvon/expense-console/internal/apiclient"
	"github.com/benvon/expense-console/internal/models"
	"github.com/benvon/expense-console/internal/services/backend"
	"github.com/benvon/expense-console/internal/session"
	"github.com/benvon/expense-console/internal/storage"
	"github.com/benvon/expense-console/internal/views"
)

const testKey = "sandbox-test-signing-key"

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	if opts.SigningKey == "" {
		opts.SigningKey = testKey
	}
	srv, err := New(opts, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv
}

func serve(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func login(t *testing.T, h http.Handler, username, password string) string {
	t.Helper()
	rr := serve(t, h, http.MethodPost, "/api/authenticate", "", models.LoginRequest{Username: username, Password: password})
	if rr.Code != http.StatusOK {
		t.Fatalf("Login as %s: expected 200, got %d: %s", username, rr.Code, rr.Body.String())
	}
	var resp models.LoginResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode login response: %v", err)
	}
	return resp.JWT
}

func TestHealth(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, Options{})

	for _, path := range []string{"/healthz", "/healthz?mode=extended"} {
		rr := serve(t, srv, http.MethodGet, path, "", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rr.Code)
		}
		var resp HealthResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to decode health response: %v", err)
		}
		if resp.Status != "healthy" {
			t.Errorf("%s: expected healthy, got %q", path, resp.Status)
		}
		if strings.Contains(path, "extended") && resp.Checks["store"] != "healthy" {
			t.Errorf("Expected store check to be healthy, got %v", resp.Checks)
		}
	}
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, Options{})

	tests := []struct {
		name       string
		body       models.LoginRequest
		wantStatus int
		validate   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:       "valid credentials",
			body:       models.LoginRequest{Username: "manager", Password: "manager123"},
			wantStatus: http.StatusOK,
			validate: func(t *testing.T, rr *httptest.ResponseRecorder) {
				var resp models.LoginResponse
				if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
					t.Fatalf("Failed to decode response: %v", err)
				}
				result := session.Decode(resp.JWT)
				if result.Status != session.Valid {
					t.Fatalf("Expected a decodable token, got %v", result.Status)
				}
				if result.Identity.Username != "manager" || !result.Identity.CanApprove() {
					t.Errorf("Unexpected identity %+v", result.Identity)
				}
			},
		},
		{
			name:       "wrong password",
			body:       models.LoginRequest{Username: "manager", Password: "nope"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unknown user",
			body:       models.LoginRequest{Username: "ghost", Password: "whatever"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing password",
			body:       models.LoginRequest{Username: "manager"},
			wantStatus: http.StatusBadRequest,
			validate: func(t *testing.T, rr *httptest.ResponseRecorder) {
				if !strings.Contains(rr.Body.String(), "Password is required") {
					t.Errorf("Expected a field message, got %s", rr.Body.String())
				}
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rr := serve(t, srv, http.MethodPost, "/api/authenticate", "", tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if tt.validate != nil {
				tt.validate(t, rr)
			}
		})
	}
}

func TestAuthenticate_RateLimited(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, Options{LoginRate: "2-M"})
	body := models.LoginRequest{Username: "employee", Password: "wrong"}

	for i := 0; i < 2; i++ {
		if rr := serve(t, srv, http.MethodPost, "/api/authenticate", "", body); rr.Code != http.StatusUnauthorized {
			t.Fatalf("Attempt %d: expected 401, got %d", i+1, rr.Code)
		}
	}
	if rr := serve(t, srv, http.MethodPost, "/api/authenticate", "", body); rr.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 after the limit, got %d", rr.Code)
	}
}

func TestRegister(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, Options{})
	reg := models.Registration{Username: "dana", Email: "dana@example.com", Password: "secret1", Role: "EMPLOYEE"}

	rr := serve(t, srv, http.MethodPost, "/api/users/post", "", reg)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	login(t, srv, "dana", "secret1")

	rr = serve(t, srv, http.MethodPost, "/api/users/post", "", reg)
	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), "already taken") {
		t.Errorf("Expected duplicate username to be rejected, got %d: %s", rr.Code, rr.Body.String())
	}

	reg.Username, reg.Role = "eve", "OVERLORD"
	if rr := serve(t, srv, http.MethodPost, "/api/users/post", "", reg); rr.Code != http.StatusBadRequest {
		t.Errorf("Expected unknown role to be rejected, got %d", rr.Code)
	}
}

func TestRoleGates(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, Options{})
	employee := login(t, srv, "employee", "employee123")
	manager := login(t, srv, "manager", "manager123")
	admin := login(t, srv, "admin", "admin123")

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
	}{
		{"no token", http.MethodGet, "/api/expenses/my-expenses", "", http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/api/expenses/my-expenses", "garbage", http.StatusUnauthorized},
		{"employee own list", http.MethodGet, "/api/expenses/my-expenses", employee, http.StatusOK},
		{"employee all expenses", http.MethodGet, "/api/expenses", employee, http.StatusForbidden},
		{"manager all expenses", http.MethodGet, "/api/expenses", manager, http.StatusOK},
		{"employee approvals", http.MethodGet, "/api/approvals", employee, http.StatusForbidden},
		{"employee audit logs", http.MethodGet, "/api/audit-logs", employee, http.StatusForbidden},
		{"manager audit logs", http.MethodGet, "/api/audit-logs", manager, http.StatusForbidden},
		{"admin audit logs", http.MethodGet, "/api/audit-logs", admin, http.StatusOK},
		{"employee categories", http.MethodGet, "/api/expense-categories", employee, http.StatusOK},
		{"manager delete", http.MethodDelete, "/api/expenses/1", manager, http.StatusForbidden},
		{"admin delete missing", http.MethodDelete, "/api/expenses/999", admin, http.StatusNotFound},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rr := serve(t, srv, tt.method, tt.path, tt.token, nil)
			if rr.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestCreateExpense(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, Options{})
	token := login(t, srv, "employee", "employee123")

	rr := serve(t, srv, http.MethodPost, "/api/expenses/post", token, models.ExpenseCreateRequest{
		Amount: 12.5, Description: "Taxi", ExpenseDate: "2024-03-01", CategoryID: 1,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var created models.Expense
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to decode expense: %v", err)
	}
	if created.Status != models.ExpenseStatusPending || created.EmployeeID == 0 {
		t.Errorf("Unexpected expense %+v", created)
	}

	approvals := srv.Store().Approvals()
	if len(approvals) != 1 || approvals[0].ExpenseID != created.ID {
		t.Errorf("Expected one pending approval for expense %d, got %+v", created.ID, approvals)
	}
	if logs := srv.Store().AuditLogs(); logs[len(logs)-1].Action != "CREATE" || logs[len(logs)-1].EntityType != "EXPENSE" {
		t.Errorf("Expected an audit entry for the expense, got %+v", logs[len(logs)-1])
	}

	rr = serve(t, srv, http.MethodPost, "/api/expenses/post", token, models.ExpenseCreateRequest{Description: "x", ExpenseDate: "03/01/2024"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for invalid expense, got %d", rr.Code)
	}
	var fields map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &fields); err != nil {
		t.Fatalf("Failed to decode field errors: %v", err)
	}
	for _, key := range []string{"Amount", "ExpenseDate", "CategoryID"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("Expected a field error for %s, got %v", key, fields)
		}
	}
}

func TestPaginate(t *testing.T) {
	t.Parallel()
	rows := []models.Expense{
		{ID: 1, ExpenseDate: "2024-01-02"},
		{ID: 2, ExpenseDate: "2024-03-01"},
		{ID: 3, ExpenseDate: "2024-02-10"},
	}

	tests := []struct {
		name      string
		query     string
		wantIDs   []int64
		wantPages int
	}{
		{"defaults", "", []int64{1, 2, 3}, 1},
		{"sorted desc", "?sort=expenseDate,desc", []int64{2, 3, 1}, 1},
		{"sorted asc second page", "?sort=expenseDate,asc&page=1&size=2", []int64{2}, 2},
		{"past the end", "?page=5&size=2", []int64{}, 2},
		{"unknown sort ignored", "?sort=nope,desc", []int64{1, 2, 3}, 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			input := append([]models.Expense{}, rows...)
			req := httptest.NewRequest(http.MethodGet, "/api/expenses"+tt.query, nil)
			page := paginate(req, input, expenseKeys)
			if len(page.Content) != len(tt.wantIDs) {
				t.Fatalf("Expected %d rows, got %d", len(tt.wantIDs), len(page.Content))
			}
			for i, id := range tt.wantIDs {
				if page.Content[i].ID != id {
					t.Errorf("Row %d: expected id %d, got %d", i, id, page.Content[i].ID)
				}
			}
			if page.TotalElements != 3 || page.TotalPages != tt.wantPages {
				t.Errorf("Expected 3 elements over %d pages, got %d over %d", tt.wantPages, page.TotalElements, page.TotalPages)
			}
		})
	}
}

func TestSigner(t *testing.T) {
	t.Parallel()

	if _, err := NewSigner("", 0); err == nil {
		t.Fatal("Expected an empty key to be rejected")
	}

	signer, err := NewSigner(testKey, time.Hour)
	if err != nil {
		t.Fatalf("NewSigner() error = %v", err)
	}
	token, err := signer.Mint(models.User{ID: 7, Username: "finance", Role: "FINANCE_MANAGER"})
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}

	user, err := signer.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if user.ID != 7 || user.Username != "finance" || user.Role != "FINANCE_MANAGER" {
		t.Errorf("Unexpected user %+v", user)
	}

	other, _ := NewSigner("another-key", time.Hour)
	if _, err := other.Verify(token); err == nil {
		t.Error("Expected a token signed with another key to fail")
	}

	expired, _ := NewSigner(testKey, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := expired.Verify(token); err == nil {
		t.Error("Expected an expired token to fail")
	}
}

// TestConsoleAgainstSandbox drives the console stack over real HTTP
func TestConsoleAgainstSandbox(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := httptest.NewServer(newTestServer(t, Options{}))
	t.Cleanup(ts.Close)

	newSession := func(t *testing.T) (*session.Manager, *backend.Services) {
		t.Helper()
		var manager *session.Manager
		client, err := apiclient.New(ts.URL+"/api", apiclient.WithTokenSource(apiclient.TokenFunc(func() string {
			return manager.Token()
		})))
		if err != nil {
			t.Fatalf("apiclient.New() error = %v", err)
		}
		svc := backend.New(client, nil)
		manager = session.New(storage.NewMemoryStore(), svc.Auth, nil, nil)
		return manager, svc
	}

	employee, employeeSvc := newSession(t)
	if err := employee.Login(ctx, "employee", "wrong"); !errors.Is(err, session.ErrAuthentication) {
		t.Fatalf("Expected ErrAuthentication for a bad password, got %v", err)
	}
	if err := employee.Login(ctx, "employee", "employee123"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	employeePage := views.NewExpensesPage(employee, employeeSvc, nil)
	created, err := employeePage.Create(ctx, views.ExpenseForm{
		Amount: 42.5, Description: "Client lunch", ExpenseDate: "2024-05-02", CategoryID: 2,
	}, &views.ReceiptFile{Name: "lunch.png", Data: pngBytes})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if rows := employeePage.Expenses(); len(rows) != 1 || rows[0].ID != created.ID {
		t.Fatalf("Expected the new expense in the employee list, got %+v", rows)
	}
	if err := employeePage.Approve(ctx, created.ID, ""); !errors.Is(err, views.ErrNotPermitted) {
		t.Errorf("Expected an employee approval to be refused locally, got %v", err)
	}

	manager, managerSvc := newSession(t)
	if err := manager.Login(ctx, "manager", "manager123"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	managerPage := views.NewExpensesPage(manager, managerSvc, nil)
	if err := managerPage.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if managerPage.PendingCount() != 1 {
		t.Fatalf("Expected one pending expense, got %d", managerPage.PendingCount())
	}
	if err := managerPage.Approve(ctx, created.ID, "ok"); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if rows := managerPage.Expenses(); rows[0].Status != models.ExpenseStatusApproved {
		t.Errorf("Expected APPROVED after reload, got %s", rows[0].Status)
	}

	receipts, err := managerPage.Receipts(ctx, created.ID)
	if err != nil || len(receipts) != 1 {
		t.Fatalf("Receipts() = %v, %v", receipts, err)
	}
	data, contentType, err := managerPage.DownloadReceipt(ctx, receipts[0].FileName)
	if err != nil {
		t.Fatalf("DownloadReceipt() error = %v", err)
	}
	if !bytes.Equal(data, pngBytes) || contentType != "image/png" {
		t.Errorf("Unexpected download: %d bytes of %s", len(data), contentType)
	}

	if err := managerPage.Delete(ctx, created.ID); !errors.Is(err, views.ErrNotPermitted) {
		t.Errorf("Expected a manager delete to be refused locally, got %v", err)
	}

	if err := employee.Logout(ctx); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if err := employeePage.Load(ctx); err == nil {
		t.Error("Expected loading after logout to fail")
	}
}

func TestTracingEnabled(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, Options{Tracing: true})
	rr := serve(t, srv, http.MethodGet, "/healthz", "", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200 with tracing middleware, got %d", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("Expected a request id header")
	}
}
