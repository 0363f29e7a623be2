package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteHealth = "/api/health"

	// Auth Routes - Login & Logout
	RouteAuthLogin     = "/api/auth/login"
	RouteAuthFederated = "/api/auth/federated"
	RouteAuthGoogle    = "/api/auth/google" // older mobile clients post here
	RouteAuthMe        = "/api/auth/me"
	RouteAuthLogout    = "/api/auth/logout"
	RouteAuthLogoutAll = "/api/auth/logout-all"

	// CORS preflight for everything under /api
	RouteAPIPreflight = "/api/{path...}"
)
