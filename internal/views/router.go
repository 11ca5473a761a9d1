package views

// Routes of the console
const (
	RouteLanding   = "/"
	RouteLogin     = "/login"
	RouteSignup    = "/signup"
	RouteDashboard = "/dashboard"
	RouteExpenses  = "/expenses"
	RouteReports   = "/reports"
)

var (
	publicRoutes = map[string]bool{
		RouteLogin:  true,
		RouteSignup: true,
	}
	protectedRoutes = map[string]bool{
		RouteDashboard: true,
		RouteExpenses:  true,
		RouteReports:   true,
	}
)

// AuthState reports whether a session is authenticated
type AuthState interface {
	Authenticated() bool
}

// Router applies the route guards
type Router struct {
	auth AuthState
}

// NewRouter creates a router over auth
func NewRouter(auth AuthState) *Router {
	return &Router{auth: auth}
}

// Resolve returns the route to show for a requested one. Protected routes
// send anonymous users to login, login and signup send authenticated users
// to the dashboard, and unknown routes go to the landing page.
func (r *Router) Resolve(route string) string {
	switch {
	case route == RouteLanding:
		return RouteLanding
	case protectedRoutes[route]:
		if !r.auth.Authenticated() {
			return RouteLogin
		}
		return route
	case publicRoutes[route]:
		if r.auth.Authenticated() {
			return RouteDashboard
		}
		return route
	default:
		return RouteLanding
	}
}

// Allowed reports whether route resolves to itself
func (r *Router) Allowed(route string) bool {
	return r.Resolve(route) == route
}
