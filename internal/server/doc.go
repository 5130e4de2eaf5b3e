// Package server implements the mixtape JSON API over net/http.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [BasicRouter] uses [http.ServeMux]
// method patterns. Middleware added with Use wraps the whole mux, middleware passed to Handle wraps one route.
//
// Router-level middleware, outermost first:
//   - [Recoverer] : panics become 500 {"error"} without leaking details
//   - [RequestLogger] : method, path, status, duration
//   - [CORS] : allowed origins with credentials, preflight answered with 204
//
// # Sessions
//
// [TokenIssuer] signs HS256 tokens whose subject is the user ID and whose ID (jti) is the revocation key.
// [RequireAuth] guards every route except signup, login and health. It rejects requests with 401 and one of:
//
//	{"error": "Missing authorization token"}
//	{"error": "Token has expired"}
//	{"error": "Invalid token"}
//	{"error": "Token has been revoked"}
//
// Logout records the token's jti so later requests with it are rejected as revoked.
//
// # Routes
//
//	GET  /health
//	POST /api/auth/signup
//	POST /api/auth/login
//	GET  /api/auth/me
//	POST /api/auth/logout
//	POST /api/generate
//	POST /api/add_song
//	POST /api/remove_song
//	GET  /api/mixtape_queue
//	POST /api/generate_playlist_from_songs
//
// Errors are classified with errors.Is against the sentinels in the shared package: validation and conflict
// are 400, not found is 404, upstream failures are 500.
package server
