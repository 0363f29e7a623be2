package server

import "net/http"

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("OPTIONS "+RouteAPIPreflight, ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))

	// LOGIN
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthFederated, ChainMiddleware(s.FederatedLoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthGoogle, ChainMiddleware(s.FederatedLoginHandler(), s.APIMiddleware()...))

	// Logout needs no valid session: revoking an unknown token is still a success
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	// Protected routes
	s.RegisterRouteHandler("GET "+RouteAuthMe, ChainMiddleware(Pipeline(s.MeHandler(), s.authorizeStep), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogoutAll, ChainMiddleware(Pipeline(s.LogoutAllHandler(), s.authorizeStep), s.APIMiddleware()...))
}

// Protect runs handler behind the authorization gate. Handlers mounted by other parts of the
// portal use this and read the tenant with auth.PrincipalFrom.
func (s *Server) Protect(pattern string, handler http.HandlerFunc, steps ...Step) {
	steps = append([]Step{s.authorizeStep}, steps...)
	s.RegisterRouteHandler(pattern, ChainMiddleware(Pipeline(handler, steps...), s.APIMiddleware()...))
}
