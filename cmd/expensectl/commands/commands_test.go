package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/benvon/expense-console/internal/sandbox"
	"github.com/benvon/expense-console/internal/session"
	"github.com/benvon/expense-console/internal/views"
)

func setupCLI(t *testing.T) {
	t.Helper()
	srv, err := sandbox.New(sandbox.Options{SigningKey: "cli-test-key"}, nil)
	if err != nil {
		t.Fatalf("sandbox.New() error = %v", err)
	}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	t.Setenv("EXPENSE_API_URL", ts.URL+"/api")
	t.Setenv("EXPENSE_STORE", "file")
	t.Setenv("EXPENSE_STATE_DIR", t.TempDir())
	t.Setenv("API_RATE_LIMIT", "1000-S")
	t.Setenv("OTEL_ENABLED", "false")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("expensectl %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestCLI_SessionLifecycle(t *testing.T) {
	setupCLI(t)

	if _, err := run(t, "whoami"); !errors.Is(err, errNotLoggedIn) {
		t.Fatalf("Expected errNotLoggedIn before login, got %v", err)
	}

	_, err := run(t, "login", "-u", "employee", "-p", "wrong")
	if err == nil || err.Error() != views.MsgLoginFailed {
		t.Fatalf("Expected %q, got %v", views.MsgLoginFailed, err)
	}

	if out := mustRun(t, "login", "-u", "employee", "-p", "employee123"); !strings.Contains(out, "Logged in as employee") {
		t.Errorf("Unexpected login output: %q", out)
	}
	if _, err := run(t, "login", "-u", "employee", "-p", "employee123"); !errors.Is(err, errAlreadyLoggedIn) {
		t.Errorf("Expected errAlreadyLoggedIn, got %v", err)
	}

	out := mustRun(t, "whoami", "--json")
	if !strings.Contains(out, `"username": "employee"`) || !strings.Contains(out, `"EMPLOYEE"`) {
		t.Errorf("Unexpected whoami output: %s", out)
	}

	mustRun(t, "logout")
	if _, err := run(t, "dashboard"); !errors.Is(err, errNotLoggedIn) {
		t.Errorf("Expected errNotLoggedIn after logout, got %v", err)
	}
}

func TestCLI_ExpenseWorkflow(t *testing.T) {
	setupCLI(t)

	mustRun(t, "login", "-u", "employee", "-p", "employee123")
	out := mustRun(t, "expenses", "create", "--amount", "18.40", "--description", "Taxi to airport", "--date", "2024-04-02", "--category", "1")
	if !strings.Contains(out, "Created expense 1 (PENDING)") {
		t.Fatalf("Unexpected create output: %q", out)
	}

	if _, err := run(t, "expenses", "create", "--amount", "0", "--description", "Nothing", "--category", "1"); err == nil {
		t.Error("Expected a zero amount to be rejected")
	}

	out = mustRun(t, "expenses", "list")
	for _, want := range []string{"My Expenses (1 pending)", "Taxi to airport", "Travel", "18.40"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in list output:\n%s", want, out)
		}
	}

	if _, err := run(t, "expenses", "approve", "1"); !errors.Is(err, views.ErrNotPermitted) {
		t.Errorf("Expected ErrNotPermitted for an employee, got %v", err)
	}

	out = mustRun(t, "dashboard")
	if !strings.Contains(out, "Hello, employee") {
		t.Errorf("Unexpected dashboard output: %s", out)
	}

	mustRun(t, "logout")
	mustRun(t, "login", "-u", "manager", "-p", "manager123")

	if out := mustRun(t, "expenses", "approve", "1", "-c", "fine"); !strings.Contains(out, "Expense 1 APPROVED") {
		t.Errorf("Unexpected approve output: %q", out)
	}
	if out := mustRun(t, "approvals"); !strings.Contains(out, "fine") {
		t.Errorf("Expected the approval comment in approvals output:\n%s", out)
	}

	_, err := run(t, "audit-logs")
	if err == nil || !strings.Contains(err.Error(), "Access denied") {
		t.Errorf("Expected access denied for a manager reading audit logs, got %v", err)
	}
	if _, err := run(t, "expenses", "delete", "1"); !errors.Is(err, views.ErrNotPermitted) {
		t.Errorf("Expected ErrNotPermitted for a manager delete, got %v", err)
	}
}

func TestCLI_Theme(t *testing.T) {
	setupCLI(t)

	if out := mustRun(t, "theme"); strings.TrimSpace(out) != views.ThemeLight {
		t.Errorf("Expected light by default, got %q", out)
	}
	if out := mustRun(t, "theme", "toggle"); strings.TrimSpace(out) != views.ThemeDark {
		t.Errorf("Expected dark after toggle, got %q", out)
	}
	if out := mustRun(t, "theme"); strings.TrimSpace(out) != views.ThemeDark {
		t.Errorf("Expected the toggle to persist, got %q", out)
	}
}

func TestCLI_Reports(t *testing.T) {
	setupCLI(t)

	if _, err := run(t, "reports"); !errors.Is(err, errNotLoggedIn) {
		t.Fatalf("Expected errNotLoggedIn, got %v", err)
	}
	mustRun(t, "login", "-u", "finance", "-p", "finance123")
	out := mustRun(t, "reports")
	for _, want := range []string{"Awaiting Approval", "DRAFT", "15.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in reports output:\n%s", want, out)
		}
	}
}

func TestWhoamiView(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		identity *session.Identity
		wantID   string
	}{
		{
			name: "token with id",
			identity: &session.Identity{
				Username: "alice",
				ID:       7,
				HasID:    true,
				Roles:    session.NewRoleSet([]string{"ROLE_MANAGER"}),
			},
			wantID: `"id":7`,
		},
		{
			name: "token without id",
			identity: &session.Identity{
				Username: "bob",
				Roles:    session.NewRoleSet([]string{"EMPLOYEE"}),
			},
			wantID: `"id":null`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data, err := json.Marshal(whoamiView(tt.identity))
			if err != nil {
				t.Fatalf("json.Marshal() error = %v", err)
			}
			if !strings.Contains(string(data), tt.wantID) {
				t.Errorf("Expected %s in %s", tt.wantID, data)
			}
		})
	}
}
