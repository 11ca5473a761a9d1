package sandbox

import (
	"fmt"
	"net/http"
	"time"

	"github.com/benvon/expense-console/internal/middleware"
	"github.com/benvon/expense-console/internal/models"
	"github.com/benvon/expense-console/internal/request"
	"github.com/benvon/expense-console/internal/session"
	"github.com/benvon/expense-console/internal/validation"
	"github.com/gorilla/mux"
	"github.com/ulule/limiter/v3"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

// ServiceName is the tracing service name of the sandbox
const ServiceName = "expense-sandbox"

// Options configures a sandbox server
type Options struct {
	SigningKey     string
	TokenTTL       time.Duration
	AllowedOrigins []string
	// LoginRate limits POST /api/authenticate per client IP, e.g. "5-M"
	LoginRate    string
	LimiterStore limiter.Store
	Tracing      bool
	Seed         []SeedUser
}

// Server serves the sandbox expense API
type Server struct {
	store  *Store
	signer *Signer
	logger *zap.Logger
	router *mux.Router
}

// New builds a seeded sandbox server
func New(opts Options, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	signer, err := NewSigner(opts.SigningKey, opts.TokenTTL)
	if err != nil {
		return nil, err
	}
	store := NewStore()
	seed := opts.Seed
	if seed == nil {
		seed = DefaultSeed
	}
	if err := store.Seed(seed); err != nil {
		return nil, fmt.Errorf("failed to seed sandbox: %w", err)
	}

	s := &Server{store: store, signer: signer, logger: logger}
	if err := s.routes(opts); err != nil {
		return nil, err
	}
	return s, nil
}

// Store exposes the backing store
func (s *Server) Store() *Store { return s.store }

// Signer exposes the token signer
func (s *Server) Signer() *Signer { return s.signer }

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes(opts Options) error {
	r := mux.NewRouter()

	// Registered last runs first
	if opts.Tracing {
		r.Use(otelmux.Middleware(ServiceName))
	}
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(opts.AllowedOrigins, s.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.MaxRequestSize(validation.MaxReceiptSize + middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType("/api/receipts/upload"))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ErrorHandler(s.logger))
	r.Use(middleware.Audit(s.logger))
	r.Use(middleware.Logging(s.logger))

	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	loginLimit, err := middleware.RateLimit(opts.LimiterStore, opts.LoginRate)
	if err != nil {
		return err
	}
	api.Handle("/authenticate", loginLimit(http.HandlerFunc(s.authenticate))).Methods(http.MethodPost)
	api.HandleFunc("/users/post", s.register).Methods(http.MethodPost)

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth(s.signer, s.logger))

	protected.HandleFunc("/expenses", s.requireApprover(s.listExpenses)).Methods(http.MethodGet)
	protected.HandleFunc("/expenses/my-expenses", s.myExpenses).Methods(http.MethodGet)
	protected.HandleFunc("/expenses/post", s.createExpense).Methods(http.MethodPost)
	protected.HandleFunc("/expenses/{id:[0-9]+}", s.getExpense).Methods(http.MethodGet)
	protected.HandleFunc("/expenses/{id:[0-9]+}", s.updateExpense).Methods(http.MethodPut)
	protected.HandleFunc("/expenses/{id:[0-9]+}", s.requireAdmin(s.deleteExpense)).Methods(http.MethodDelete)

	protected.HandleFunc("/approvals", s.requireApprover(s.listApprovals)).Methods(http.MethodGet)
	protected.HandleFunc("/approvals/{id:[0-9]+}", s.getApproval).Methods(http.MethodGet)
	protected.HandleFunc("/approvals/{id:[0-9]+}/action", s.requireApprover(s.actOnApproval)).Methods(http.MethodPut)

	protected.HandleFunc("/receipts", s.listReceipts).Methods(http.MethodGet)
	protected.HandleFunc("/receipts/upload", s.uploadReceipt).Methods(http.MethodPost)
	protected.HandleFunc("/receipts/expense/{id:[0-9]+}", s.receiptsForExpense).Methods(http.MethodGet)
	protected.HandleFunc("/receipts/files/{name}", s.receiptFile).Methods(http.MethodGet)

	registerCRUD(s, protected, "/expense-categories", s.store.categories, categoryKeys)
	registerCRUD(s, protected, "/departments", s.store.departments, departmentKeys)

	protected.HandleFunc("/users", s.requireApprover(s.listUsers)).Methods(http.MethodGet)
	protected.HandleFunc("/users/{id:[0-9]+}", s.getUser).Methods(http.MethodGet)
	protected.HandleFunc("/audit-logs", s.requireAdmin(s.listAuditLogs)).Methods(http.MethodGet)

	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	s.router = r
	return nil
}

func rolesOf(user *models.User) session.RoleSet {
	if user == nil {
		return session.RoleSet{}
	}
	return session.NewRoleSet([]string{user.Role})
}

func (s *Server) requireApprover(next http.HandlerFunc) http.HandlerFunc {
	return s.requireRole(next, session.RoleAdmin, session.RoleManager, session.RoleFinanceManager)
}

func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.requireRole(next, session.RoleAdmin)
}

func (s *Server) requireRole(next http.HandlerFunc, roles ...session.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rolesOf(request.UserFromContext(r)).Has(roles...) {
			s.respondError(w, r, http.StatusForbidden, "Access Denied")
			return
		}
		next(w, r)
	}
}
