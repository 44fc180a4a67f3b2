// Package server provides the LunaStream JSON API plus the OAuth callback used by the CLI login flow.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns, so handlers read path wildcards
// with [http.Request.PathValue].
//
// # Identity
//
// Requests carrying "Authorization: Bearer <id token>" are resolved by an [IdentityResolver]. The production
// resolver, [OIDCIdentity], verifies tokens against the issuer's published keys. The first request from a new
// subject provisions a user row. Invalid tokens are treated as guests, and routes wrapped in [RequireIdentity]
// answer 401 for them.
//
// Admin routes compare the X-Admin-Password header against a bcrypt hash from the server config.
//
// # Routes
//
//	GET    /health
//	GET    /api/continue-watching                (identity)
//	POST   /api/continue-watching                (identity)
//	DELETE /api/continue-watching?media_id=&media_type=  (identity)
//	GET    /api/notifications
//	GET    /api/notifications/unread-count
//	POST   /api/notifications/read               (identity)
//	POST   /api/notifications/read-all           (identity)
//	GET    /api/statistics
//	POST   /api/statistics/track
//	GET    /api/admin/notifications              (admin)
//	POST   /api/admin/notifications              (admin)
//	DELETE /api/admin/notifications?id=          (admin)
//	GET    /api/search?q=&type=
//	GET    /api/home
//	GET    /api/movie/{id}, /api/tv/{id}, /api/anime/{id}
//	GET    /api/tv/{id}/season/{n}
//	GET    /api/sports/live?sport=&popular=
//	GET    /api/sports/streams/{source}/{id}
//	GET    /api/players?kind=&id=&season=&episode=&player=
//
// Errors are JSON objects of the form {"error": "..."}.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the authorization code callback for `luna auth login`. It validates the state
// parameter, exchanges the code with a PKCE verifier, extracts the OIDC ID token and sends the result through a
// channel. It only processes one callback.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
