// Package auth implements device-bound bearer-token authentication: token
// issuance, verification and the HTTP middleware that enforces it.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Config holds the signing parameters shared by issuance and verification.
type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// Claims carries the device identity extracted from a verified token.
type Claims struct {
	DeviceID  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ErrMissingToken is returned when no bearer credential is present.
var ErrMissingToken = errors.New("missing bearer token")

// ErrMalformedToken is returned when the Authorization header is not in the
// expected "Bearer <token>" shape.
var ErrMalformedToken = errors.New("malformed bearer token")

// ErrExpiredToken is returned when the token's expiry has passed.
var ErrExpiredToken = errors.New("token expired")

// ErrInvalidToken wraps signature and claim validation failures.
var ErrInvalidToken = errors.New("invalid bearer token")

// DefaultTTL is the token lifetime used when Config.TTL is zero.
const DefaultTTL = time.Hour

// Issue signs a token granting write access for deviceID until the configured
// TTL elapses. Tokens are never persisted; validity is computed per request.
func Issue(deviceID string, cfg Config) (string, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return "", errors.New("device id is required")
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}

	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"device_id": deviceID,
		"jti":       uuid.NewString(),
		"iat":       jwt.NewNumericDate(now),
		"exp":       jwt.NewNumericDate(now.Add(ttl)),
	}
	if cfg.Issuer != "" {
		claims["iss"] = cfg.Issuer
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Secret))
}

// Verify validates a token and returns the device identity it binds.
func Verify(token string, cfg Config) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	deviceID, _ := claims["device_id"].(string)
	if deviceID == "" {
		return nil, ErrInvalidToken
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrInvalidToken
	}

	out := &Claims{DeviceID: deviceID, ExpiresAt: exp.Time}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}
	return out, nil
}

// ExtractToken pulls the bearer credential out of an Authorization header.
func ExtractToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", ErrMissingToken
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrMalformedToken
	}
	return parts[1], nil
}
