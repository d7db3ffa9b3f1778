package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteHealth = "/healthz"

	// OAuth2 Routes
	RouteOAuthAuthorize = "/oauth/authorize"
	RouteOAuthToken     = "/oauth/token"
	RouteOAuthRevoke    = "/oauth/revoke"

	// SSO Routes
	RouteSSOValidate = "/api/sso/validate"

	// Integration Routes
	RouteSyncSubscription = "/api/integrations/solosuccess/sync-subscription"
	RouteSyncAll          = "/api/integrations/solosuccess/sync-all"
	RouteSyncStatus       = "/api/integrations/solosuccess/status/{userId}"
	RouteConnect          = "/api/integrations/solosuccess/connect"
	RouteEntitlements     = "/api/entitlements"

	// Admin Routes
	RouteAdminClients = "/api/admin/oauth/clients"
	RouteAdminClient  = "/api/admin/oauth/clients/{id}"

	// Local Auth Routes
	RouteAuthRegister       = "/api/auth/register"
	RouteAuthLogin          = "/api/auth/login"
	RouteAuthForgotPassword = "/api/auth/forgot-password"
	RouteAuthResetPassword  = "/api/auth/reset-password"
)

const sessionCookieName = "session_token"
