// Package httpapi is the HTTP layer of the CRM backend: routing, middleware,
// request identity and the JSON response envelope.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"smallcrm.org/internal/activity"
	"smallcrm.org/internal/auth"
	"smallcrm.org/internal/crm"
	"smallcrm.org/internal/obs"
)

// ReadyProbe checks dependencies for the readiness endpoint.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options carries the tunables applied by Handler.
type Options struct {
	MaxBodyBytes       int64
	RateLimitPerSecond int
	RateLimitBurst     int
}

func (o Options) withDefaults() Options {
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 1 << 20
	}
	if o.RateLimitPerSecond <= 0 {
		o.RateLimitPerSecond = 50
	}
	if o.RateLimitBurst <= 0 {
		o.RateLimitBurst = 100
	}
	return o
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	auth       *auth.Service
	users      *auth.Users
	customers  *crm.Customers
	products   *crm.Products
	orders     *crm.Orders
	dashboard  *crm.Dashboard
	activities *activity.Service
	readyProbe ReadyProbe
	version    string
	opts       Options
	validate   *validator.Validate
}

// Deps bundles the services the API serves.
type Deps struct {
	Auth       *auth.Service
	Users      *auth.Users
	Customers  *crm.Customers
	Products   *crm.Products
	Orders     *crm.Orders
	Dashboard  *crm.Dashboard
	Activities *activity.Service
}

func New(deps Deps, rp ReadyProbe, version string, opts Options) *API {
	a := &API{
		mux:        http.NewServeMux(),
		auth:       deps.Auth,
		users:      deps.Users,
		customers:  deps.Customers,
		products:   deps.Products,
		orders:     deps.Orders,
		dashboard:  deps.Dashboard,
		activities: deps.Activities,
		readyProbe: rp,
		version:    version,
		opts:       opts.withDefaults(),
		validate:   validator.New(),
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/api/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// authentication
	a.mux.HandleFunc("/api/auth/register", a.handleRegister)
	a.mux.HandleFunc("/api/auth/login", a.handleLogin)
	a.mux.HandleFunc("/api/auth/refresh", a.handleRefresh)
	a.mux.HandleFunc("/api/auth/me", a.requireAuth(a.handleMe))

	// user administration
	a.mux.HandleFunc("/api/users", a.requireRole(auth.RoleAdmin, a.handleUsers))
	a.mux.HandleFunc("/api/users/", a.handleUserResource)

	// customers
	a.mux.HandleFunc("/api/customers", a.requireAuth(a.handleCustomers))
	a.mux.HandleFunc("/api/customers/", a.requireAuth(a.handleCustomerResource))

	// products: reads are public, writes are admin-only
	a.mux.HandleFunc("/api/products", a.handleProducts)
	a.mux.HandleFunc("/api/products/", a.handleProductResource)

	// orders
	a.mux.HandleFunc("/api/orders", a.requireAuth(a.handleOrders))
	a.mux.HandleFunc("/api/orders/", a.requireAuth(a.handleOrderResource))

	// dashboard + audit log
	a.mux.HandleFunc("/api/dashboard/", a.requireRole(auth.RoleAdmin, a.handleDashboard))
	a.mux.HandleFunc("/api/activities", a.requireRole(auth.RoleAdmin, a.handleActivities))

	// anything else is a 404
	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withIdentity(h)
	h = LoggingJSON(h)
	h = obs.Instrument(h)
	h = RateLimit(h, a.opts.RateLimitBurst, a.opts.RateLimitPerSecond)
	h = MaxBodyBytes(h, a.opts.MaxBodyBytes)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = RequestID(h)
	return h
}

// --- health handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "smallcrm-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "smallcrm-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// pathTail splits the remainder of the URL after prefix into segments.
func pathTail(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}
