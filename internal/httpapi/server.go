// Package httpapi exposes the expense tracker as a JSON HTTP API.
package httpapi

import (
	"context"
	"net/http"
	"net/netip"
	"sync"
	"time"

	"gitlab.com/yelinaung/expense-tracker/internal/category"
	"gitlab.com/yelinaung/expense-tracker/internal/identity"
	"gitlab.com/yelinaung/expense-tracker/internal/ledger"
	"gitlab.com/yelinaung/expense-tracker/internal/models"
	"gitlab.com/yelinaung/expense-tracker/internal/report"
	"gitlab.com/yelinaung/expense-tracker/internal/suggest"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Auth modes.
const (
	AuthToken = "token"
	AuthNone  = "none"
)

// Identity is the account surface the API needs.
type Identity interface {
	Register(ctx context.Context, in identity.RegisterInput) (models.User, error)
	Login(ctx context.Context, username, password string) (*identity.Session, error)
	Restore(ctx context.Context, id string) (*identity.Session, error)
	Logout(ctx context.Context, sess *identity.Session) error
	UpdateProfile(ctx context.Context, sess *identity.Session, patch identity.ProfilePatch) (models.User, error)
	UpdatePassword(ctx context.Context, sess *identity.Session, current, next string) error
	Get(ctx context.Context, username string) (models.User, error)
}

// Categories is the category surface the API needs.
type Categories interface {
	ListForOwner(ctx context.Context, owner string) ([]models.Category, error)
	Create(ctx context.Context, owner, name, color string) (models.Category, error)
	Update(ctx context.Context, owner, id string, patch category.Patch) (models.Category, bool, error)
	Delete(ctx context.Context, owner, id string) (bool, error)
	Names(ctx context.Context, owner string) ([]string, error)
}

// Expenses is the ledger surface the API needs.
type Expenses interface {
	Add(ctx context.Context, owner string, in ledger.AddInput) (models.Expense, error)
	Delete(ctx context.Context, owner, id string) (bool, error)
	ListForOwner(owner string) []models.Expense
}

// Reports builds report results and filtered expense lists.
type Reports interface {
	Build(ctx context.Context, owner string, f report.Filter) (report.Result, error)
	Expenses(owner string, f report.Filter) ([]models.Expense, error)
}

// Suggester picks a category for a label.
type Suggester interface {
	SuggestCategory(ctx context.Context, label string, categories []string) (*suggest.Suggestion, error)
}

// Deps are the services behind the routes. Suggester may be nil.
type Deps struct {
	Identity   Identity
	Categories Categories
	Expenses   Expenses
	Reports    Reports
	Suggester  Suggester
}

// Options configures the server.
type Options struct {
	Addr               string
	AuthMode           string
	AnonymousOwner     string
	Signer             *identity.TokenSigner
	RateLimitPerMinute int
	// TrustedProxies may set X-Forwarded-For and X-Real-IP.
	TrustedProxies []netip.Prefix
	ServiceName    string
	// Ready reports whether backing services are reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

// Server is the API server.
type Server struct {
	http.Server
	limiter      *ipLimiter
	shutdownOnce sync.Once
}

// NewServer wires routes and middleware.
func NewServer(opts Options, deps Deps) *Server {
	if opts.AuthMode == "" {
		opts.AuthMode = AuthToken
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "expense-tracker"
	}

	h := &handlers{deps: deps, opts: opts, now: time.Now}
	limiter := newIPLimiter(opts.RateLimitPerMinute, opts.TrustedProxies)

	var handler http.Handler = h.routes()
	handler = limiter.middleware(handler)
	handler = securityHeaders(handler)
	handler = accessLog(handler)
	handler = requestID(handler)
	handler = recoverer(handler)
	handler = otelhttp.NewHandler(handler, opts.ServiceName)

	return &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		limiter: limiter,
	}
}

// Shutdown stops accepting requests, waits for in-flight ones and stops
// background cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (h *handlers) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("GET /readyz", h.ready)

	mux.HandleFunc("POST /api/register", h.register)
	mux.HandleFunc("POST /api/login", h.login)

	mux.Handle("POST /api/logout", h.authenticated(h.logout))
	mux.Handle("GET /api/me", h.authenticated(h.me))
	mux.Handle("PATCH /api/me", h.authenticated(h.updateProfile))
	mux.Handle("PUT /api/me/password", h.authenticated(h.updatePassword))

	mux.Handle("GET /api/categories", h.authenticated(h.listCategories))
	mux.Handle("POST /api/categories", h.authenticated(h.createCategory))
	mux.Handle("PATCH /api/categories/{id}", h.authenticated(h.updateCategory))
	mux.Handle("DELETE /api/categories/{id}", h.authenticated(h.deleteCategory))

	mux.Handle("GET /api/expenses", h.authenticated(h.listExpenses))
	mux.Handle("POST /api/expenses", h.authenticated(h.addExpense))
	mux.Handle("DELETE /api/expenses/{id}", h.authenticated(h.deleteExpense))
	mux.Handle("POST /api/expenses/suggest-category", h.authenticated(h.suggestCategory))

	mux.Handle("GET /api/reports", h.authenticated(h.getReport))
	mux.Handle("GET /api/reports/export.csv", h.authenticated(h.exportCSV))
	mux.Handle("GET /api/reports/chart.png", h.authenticated(h.chartPNG))

	return mux
}
