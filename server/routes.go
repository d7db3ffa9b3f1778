package server

import "net/http"

func (s *Server) initRoutes() {
	api := s.APIMiddleware()
	limited := append(s.APIMiddleware(), s.limiter.Middleware)
	authed := append(s.APIMiddleware(), s.RequireAuth)
	admin := append(s.APIMiddleware(), s.RequireAuth, s.RequireAdmin)

	// CORS preflight for every route
	s.RegisterRouteFunc("OPTIONS /", ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, api...))

	s.RegisterRouteFunc("GET "+RouteHealth, ChainMiddleware(s.Health, api...))

	// OAuth2 authorization server
	s.RegisterRouteFunc("GET "+RouteOAuthAuthorize, ChainMiddleware(s.Authorize, api...))
	s.RegisterRouteFunc("POST "+RouteOAuthToken, ChainMiddleware(s.Token, limited...))
	s.RegisterRouteFunc("POST "+RouteOAuthRevoke, ChainMiddleware(s.Revoke, api...))

	// SSO bridge
	s.RegisterRouteFunc("POST "+RouteSSOValidate, ChainMiddleware(s.SSOValidate, limited...))
	s.RegisterRouteFunc("GET "+RouteSSOValidate, ChainMiddleware(s.SSOValidateRedirect, limited...))

	// Subscription integration
	s.RegisterRouteFunc("POST "+RouteSyncSubscription, ChainMiddleware(s.SyncSubscription, append(s.APIMiddleware(), s.RequireWebhookSignature)...))
	s.RegisterRouteFunc("GET "+RouteSyncAll, ChainMiddleware(s.SyncAll, append(s.APIMiddleware(), s.RequireCronSecret)...))
	s.RegisterRouteFunc("GET "+RouteSyncStatus, ChainMiddleware(s.SyncStatus, authed...))
	s.RegisterRouteFunc("POST "+RouteConnect, ChainMiddleware(s.Connect, authed...))
	s.RegisterRouteFunc("GET "+RouteEntitlements, ChainMiddleware(s.Entitlements, authed...))

	// Admin client management
	s.RegisterRouteFunc("POST "+RouteAdminClients, ChainMiddleware(s.AdminCreateClient, admin...))
	s.RegisterRouteFunc("GET "+RouteAdminClients, ChainMiddleware(s.AdminListClients, admin...))
	s.RegisterRouteFunc("GET "+RouteAdminClient, ChainMiddleware(s.AdminGetClient, admin...))
	s.RegisterRouteFunc("PUT "+RouteAdminClient, ChainMiddleware(s.AdminUpdateClient, admin...))
	s.RegisterRouteFunc("DELETE "+RouteAdminClient, ChainMiddleware(s.AdminDeactivateClient, admin...))

	// Local accounts
	s.RegisterRouteFunc("POST "+RouteAuthRegister, ChainMiddleware(s.Register, limited...))
	s.RegisterRouteFunc("POST "+RouteAuthLogin, ChainMiddleware(s.Login, limited...))
	s.RegisterRouteFunc("POST "+RouteAuthForgotPassword, ChainMiddleware(s.ForgotPassword, limited...))
	s.RegisterRouteFunc("POST "+RouteAuthResetPassword, ChainMiddleware(s.ResetPassword, limited...))
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
