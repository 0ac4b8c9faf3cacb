// Package auth issues and validates credentials for the API.
//
// Clients log in with email and password and receive two credentials:
//   - a short-lived session token (HS256 JWT) sent as "Authorization: Bearer <token>"
//   - an opaque refresh token, stored only as a SHA-256 hash, exchanged for a
//     new pair at /api/auth/refresh-token. Each refresh token is single use.
//
// # Configuration
//
//	JWT_SECRET_KEY=<random>        # HMAC key, random per process if empty
//	JWT_ISSUER=ivyscans
//	JWT_AUDIENCE=ivyscans-clients
//	AUTH_ACCESS_TOKEN_TTL=1h
//	AUTH_REFRESH_TOKEN_TTL=168h
//	AUTH_BCRYPT_COST=12
//	AUTH_MAX_LOGIN_ATTEMPTS=5      # per client IP and email
//
// # Usage
//
//	issuer := auth.NewTokenIssuer(cfg.Auth)
//	authService := auth.NewService(db, issuer, libraryService, cfg.Auth)
//	authMiddleware := auth.NewMiddleware(issuer)
//	api.GET("/user/profile", authMiddleware.RequireAuth(), handler)
//
// Extract the caller in handlers:
//
//	userID := auth.GetUserID(c)
package auth
