package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/benvon/expense-console/internal/storage"
	"github.com/golang-jwt/jwt/v5"
)

func mintToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

type fakeAuth struct {
	token string
	err   error
	calls int
}

func (f *fakeAuth) Login(_ context.Context, _, _ string) (string, error) {
	f.calls++
	return f.token, f.err
}

type recordingNav struct {
	mu     sync.Mutex
	routes []string
}

func (n *recordingNav) Navigate(route string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, route)
}

func (n *recordingNav) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.routes) == 0 {
		return ""
	}
	return n.routes[len(n.routes)-1]
}

func sortedStrings(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDecode(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	tests := []struct {
		name       string
		token      func(t *testing.T) string
		wantStatus DecodeStatus
		validate   func(*testing.T, *Identity)
	}{
		{
			name:       "empty token is absent",
			token:      func(*testing.T) string { return "" },
			wantStatus: Absent,
		},
		{
			name:       "garbage is malformed",
			token:      func(*testing.T) string { return "not-a-token" },
			wantStatus: Malformed,
		},
		{
			name:       "bad payload segment is malformed",
			token:      func(*testing.T) string { return "eyJhbGciOiJIUzI1NiJ9.!!!.sig" },
			wantStatus: Malformed,
		},
		{
			name: "comma separated roles string",
			token: func(t *testing.T) string {
				return mintToken(t, jwt.MapClaims{"sub": "alice", "roles": "ADMIN, MANAGER", "exp": exp.Unix()})
			},
			wantStatus: Valid,
			validate: func(t *testing.T, id *Identity) {
				if got := sortedStrings(id.RawRoles); !equalStrings(got, []string{"ADMIN", "MANAGER"}) {
					t.Errorf("RawRoles = %v, want [ADMIN MANAGER]", got)
				}
				if !id.IsAdmin() || !id.CanApprove() {
					t.Error("Expected admin with approval rights")
				}
				if id.Username != "alice" {
					t.Errorf("Username = %q", id.Username)
				}
				if !id.ExpiresAt.Equal(exp) {
					t.Errorf("ExpiresAt = %v, want %v", id.ExpiresAt, exp)
				}
			},
		},
		{
			name: "authorities list with prefixed finance manager",
			token: func(t *testing.T) string {
				return mintToken(t, jwt.MapClaims{"sub": "fin", "authorities": []string{"ROLE_FINANCE_MANAGER"}})
			},
			wantStatus: Valid,
			validate: func(t *testing.T, id *Identity) {
				if !id.CanApprove() {
					t.Error("Expected CanApprove to be true")
				}
				if id.IsAdmin() {
					t.Error("Expected IsAdmin to be false")
				}
				if !id.Roles.Has(RoleFinanceManager) || id.Roles.Has(RoleManager) {
					t.Errorf("Unexpected roles %v", id.Roles.Sorted())
				}
			},
		},
		{
			name: "missing role claim",
			token: func(t *testing.T) string {
				return mintToken(t, jwt.MapClaims{"sub": "bob"})
			},
			wantStatus: Valid,
			validate: func(t *testing.T, id *Identity) {
				if len(id.RawRoles) != 0 || len(id.Roles) != 0 {
					t.Errorf("Expected empty role set, got %v / %v", id.RawRoles, id.Roles)
				}
				if id.CanApprove() || id.IsAdmin() {
					t.Error("Expected both predicates false")
				}
			},
		},
		{
			name: "non-string role claim",
			token: func(t *testing.T) string {
				return mintToken(t, jwt.MapClaims{"sub": "bob", "roles": 7})
			},
			wantStatus: Valid,
			validate: func(t *testing.T, id *Identity) {
				if len(id.Roles) != 0 {
					t.Errorf("Expected empty role set, got %v", id.Roles)
				}
			},
		},
		{
			name: "empty roles falls back to authorities",
			token: func(t *testing.T) string {
				return mintToken(t, jwt.MapClaims{"sub": "m", "roles": "", "authorities": "ROLE_MANAGER"})
			},
			wantStatus: Valid,
			validate: func(t *testing.T, id *Identity) {
				if !id.Roles.Has(RoleManager) {
					t.Errorf("Expected manager role, got %v", id.RawRoles)
				}
			},
		},
		{
			name: "id claim",
			token: func(t *testing.T) string {
				return mintToken(t, jwt.MapClaims{"sub": "a", "id": 12})
			},
			wantStatus: Valid,
			validate: func(t *testing.T, id *Identity) {
				if !id.HasID || id.ID != 12 {
					t.Errorf("ID = %d (%v), want 12", id.ID, id.HasID)
				}
			},
		},
		{
			name: "userId claim",
			token: func(t *testing.T) string {
				return mintToken(t, jwt.MapClaims{"sub": "a", "userId": 34})
			},
			wantStatus: Valid,
			validate: func(t *testing.T, id *Identity) {
				if !id.HasID || id.ID != 34 {
					t.Errorf("ID = %d (%v), want 34", id.ID, id.HasID)
				}
			},
		},
		{
			name: "expired token still decodes",
			token: func(t *testing.T) string {
				return mintToken(t, jwt.MapClaims{"sub": "late", "exp": time.Now().Add(-time.Hour).Unix()})
			},
			wantStatus: Valid,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := Decode(tt.token(t))
			if result.Status != tt.wantStatus {
				t.Fatalf("Status = %v, want %v (err %v)", result.Status, tt.wantStatus, result.Err)
			}
			if tt.wantStatus == Malformed && result.Err == nil {
				t.Error("Expected Err for malformed token")
			}
			if tt.wantStatus != Valid && result.Identity != nil {
				t.Error("Expected nil identity")
			}
			if tt.validate != nil {
				tt.validate(t, result.Identity)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw    string
		want   Role
		wantOK bool
	}{
		{raw: "ADMIN", want: RoleAdmin, wantOK: true},
		{raw: "ROLE_ADMIN", want: RoleAdmin, wantOK: true},
		{raw: "ROLE_FINANCE_MANAGER", want: RoleFinanceManager, wantOK: true},
		{raw: "FINANCE_MANAGER", want: RoleFinanceManager, wantOK: true},
		{raw: "ROLE_MANAGER", want: RoleManager, wantOK: true},
		{raw: " EMPLOYEE ", want: RoleEmployee, wantOK: true},
		{raw: "SUPER_ADMIN", want: RoleAdmin, wantOK: true},
		{raw: "admin", wantOK: false},
		{raw: "AUDITOR", wantOK: false},
		{raw: "", wantOK: false},
	}

	for _, tt := range tests {
		got, ok := ParseRole(tt.raw)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseRole(%q) = %q, %v; want %q, %v", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseRoles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		raw          string
		want         []Role
		wantApprover bool
		wantAdmin    bool
	}{
		{
			name:         "exact spelling",
			raw:          "ROLE_FINANCE_MANAGER",
			want:         []Role{RoleFinanceManager},
			wantApprover: true,
		},
		{
			name:         "compound value names both roles",
			raw:          "ROLE_MANAGER_ADMIN",
			want:         []Role{RoleManager, RoleAdmin},
			wantApprover: true,
			wantAdmin:    true,
		},
		{
			name:         "finance manager does not also read as manager",
			raw:          "X_FINANCE_MANAGER",
			want:         []Role{RoleFinanceManager},
			wantApprover: true,
		},
		{
			name: "employee only",
			raw:  "ROLE_EMPLOYEE_V2",
			want: []Role{RoleEmployee},
		},
		{
			name: "unknown",
			raw:  "AUDITOR",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ParseRoles(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseRoles(%q) = %v, want %v", tt.raw, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseRoles(%q)[%d] = %q, want %q", tt.raw, i, got[i], tt.want[i])
				}
			}

			id := &Identity{Roles: NewRoleSet([]string{tt.raw})}
			if id.CanApprove() != tt.wantApprover {
				t.Errorf("CanApprove() = %v, want %v", id.CanApprove(), tt.wantApprover)
			}
			if id.IsAdmin() != tt.wantAdmin {
				t.Errorf("IsAdmin() = %v, want %v", id.IsAdmin(), tt.wantAdmin)
			}
		})
	}
}

func TestIdentity_NilPredicates(t *testing.T) {
	t.Parallel()

	var id *Identity
	if id.CanApprove() || id.IsAdmin() {
		t.Error("Expected nil identity to have no permissions")
	}
}

func TestManager_Login(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		t.Parallel()

		store := storage.NewMemoryStore()
		nav := &recordingNav{}
		token := mintToken(t, jwt.MapClaims{"sub": "alice", "roles": "ROLE_EMPLOYEE"})
		m := New(store, &fakeAuth{token: token}, nav, nil)

		if err := m.Login(ctx, "alice", "pw"); err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if !m.Authenticated() {
			t.Fatal("Expected Authenticated state")
		}
		if m.Token() != token {
			t.Error("Expected Token() to return the issued token")
		}
		if nav.last() != RouteDashboard {
			t.Errorf("Expected navigation to %s, got %q", RouteDashboard, nav.last())
		}
		stored, err := store.Get(ctx, storage.KeyToken)
		if err != nil || stored != token {
			t.Errorf("Expected token persisted, got %q (%v)", stored, err)
		}
	})

	t.Run("invalid credentials", func(t *testing.T) {
		t.Parallel()

		store := storage.NewMemoryStore()
		nav := &recordingNav{}
		backendErr := errors.New("401")
		m := New(store, &fakeAuth{err: backendErr}, nav, nil)

		err := m.Login(ctx, "alice", "wrong")
		if !errors.Is(err, ErrAuthentication) || !errors.Is(err, backendErr) {
			t.Fatalf("Expected ErrAuthentication wrapping backend error, got %v", err)
		}
		if m.Authenticated() {
			t.Error("Expected Anonymous state")
		}
		if len(nav.routes) != 0 {
			t.Errorf("Expected no navigation, got %v", nav.routes)
		}
		if _, err := store.Get(ctx, storage.KeyToken); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected no stored token, got %v", err)
		}
	})

	t.Run("failure keeps existing credential", func(t *testing.T) {
		t.Parallel()

		store := storage.NewMemoryStore()
		old := mintToken(t, jwt.MapClaims{"sub": "alice"})
		if err := store.Set(ctx, storage.KeyToken, old); err != nil {
			t.Fatal(err)
		}
		m := New(store, &fakeAuth{err: errors.New("network")}, nil, nil)
		if _, err := m.Restore(ctx); err != nil {
			t.Fatal(err)
		}

		if err := m.Login(ctx, "alice", "pw"); err == nil {
			t.Fatal("Expected error")
		}
		if m.Token() != old {
			t.Error("Expected prior token to remain")
		}
		if stored, _ := store.Get(ctx, storage.KeyToken); stored != old {
			t.Error("Expected stored token unchanged")
		}
	})

	t.Run("malformed issued token", func(t *testing.T) {
		t.Parallel()

		store := storage.NewMemoryStore()
		nav := &recordingNav{}
		m := New(store, &fakeAuth{token: "garbage"}, nav, nil)

		err := m.Login(ctx, "alice", "pw")
		if !errors.Is(err, ErrAuthentication) {
			t.Fatalf("Expected ErrAuthentication, got %v", err)
		}
		if m.Authenticated() {
			t.Error("Expected Anonymous state")
		}
		if nav.last() != RouteLogin {
			t.Errorf("Expected navigation to %s, got %q", RouteLogin, nav.last())
		}
		if _, err := store.Get(ctx, storage.KeyToken); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected malformed token removed, got %v", err)
		}
	})

	t.Run("malformed token replaces authenticated session", func(t *testing.T) {
		t.Parallel()

		store := storage.NewMemoryStore()
		nav := &recordingNav{}
		auth := &fakeAuth{token: mintToken(t, jwt.MapClaims{"sub": "alice", "roles": "ROLE_ADMIN"})}
		m := New(store, auth, nav, nil)

		if err := m.Login(ctx, "alice", "pw"); err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if !m.Authenticated() {
			t.Fatal("Expected Authenticated state after first login")
		}

		auth.token = "garbage"
		err := m.Login(ctx, "alice", "pw")
		if !errors.Is(err, ErrAuthentication) {
			t.Fatalf("Expected ErrAuthentication, got %v", err)
		}
		if m.Authenticated() || m.Identity() != nil || m.Token() != "" {
			t.Error("Expected Anonymous state with no identity or token")
		}
		if nav.last() != RouteLogin {
			t.Errorf("Expected navigation to %s, got %q", RouteLogin, nav.last())
		}
		if _, err := store.Get(ctx, storage.KeyToken); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected stored token cleared, got %v", err)
		}
	})

	t.Run("malformed stored token after login", func(t *testing.T) {
		t.Parallel()

		store := storage.NewMemoryStore()
		token := mintToken(t, jwt.MapClaims{"sub": "fin", "authorities": []string{"ROLE_FINANCE_MANAGER"}})
		m := New(store, &fakeAuth{token: token}, nil, nil)

		if err := m.Login(ctx, "fin", "pw"); err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if !m.Identity().CanApprove() {
			t.Fatal("Expected finance manager to approve")
		}

		if err := store.Set(ctx, storage.KeyToken, "a.b"); err != nil {
			t.Fatal(err)
		}
		result, err := m.Restore(ctx)
		if err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if result.Status != Malformed {
			t.Errorf("Status = %v, want %v", result.Status, Malformed)
		}
		if m.Authenticated() || m.Identity() != nil {
			t.Error("Expected Anonymous state")
		}
		if _, err := store.Get(ctx, storage.KeyToken); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected stored token cleared, got %v", err)
		}
	})
}

func TestManager_Restore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	tests := []struct {
		name       string
		stored     func(t *testing.T) string
		wantStatus DecodeStatus
		wantAuth   bool
		wantKept   bool
	}{
		{
			name:       "no stored token",
			wantStatus: Absent,
		},
		{
			name: "valid stored token",
			stored: func(t *testing.T) string {
				return mintToken(t, jwt.MapClaims{"sub": "alice", "roles": "MANAGER"})
			},
			wantStatus: Valid,
			wantAuth:   true,
			wantKept:   true,
		},
		{
			name:       "malformed stored token",
			stored:     func(*testing.T) string { return "a.b" },
			wantStatus: Malformed,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := storage.NewMemoryStore()
			if tt.stored != nil {
				if err := store.Set(ctx, storage.KeyToken, tt.stored(t)); err != nil {
					t.Fatal(err)
				}
			}
			m := New(store, &fakeAuth{}, nil, nil)

			result, err := m.Restore(ctx)
			if err != nil {
				t.Fatalf("Restore() error = %v", err)
			}
			if result.Status != tt.wantStatus {
				t.Errorf("Status = %v, want %v", result.Status, tt.wantStatus)
			}
			if m.Authenticated() != tt.wantAuth {
				t.Errorf("Authenticated() = %v, want %v", m.Authenticated(), tt.wantAuth)
			}
			_, getErr := store.Get(ctx, storage.KeyToken)
			if kept := getErr == nil; kept != tt.wantKept {
				t.Errorf("token kept = %v, want %v", kept, tt.wantKept)
			}
		})
	}
}

func TestManager_LogoutIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemoryStore()
	nav := &recordingNav{}
	token := mintToken(t, jwt.MapClaims{"sub": "alice", "roles": "ADMIN"})
	m := New(store, &fakeAuth{token: token}, nav, nil)

	if err := m.Login(ctx, "alice", "pw"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := m.Logout(ctx); err != nil {
			t.Fatalf("Logout() #%d error = %v", i+1, err)
		}
		if m.Authenticated() || m.Identity() != nil || m.Token() != "" {
			t.Fatal("Expected Anonymous state after logout")
		}
		if nav.last() != RouteLogin {
			t.Errorf("Expected navigation to %s, got %q", RouteLogin, nav.last())
		}
	}
}
