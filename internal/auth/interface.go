package auth

import "pkm/internal/domain/models"

// JWTVerifier defines the interface for JWT token verification.
// The middleware only needs VerifyToken; the signing scheme stays behind it.
type JWTVerifier interface {
	// VerifyToken validates a JWT token string and returns the parsed claims.
	// Any failure is reported as domain.ErrUnauthorized.
	VerifyToken(tokenString string) (*models.Claims, error)

	// Close releases any resources held by the verifier.
	Close() error
}
