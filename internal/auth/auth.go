// Package auth mints and verifies the signed session tokens that gate the
// WebSocket upgrade.
package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the session cookie carried across the upgrade.
const CookieName = "session_token"

// TokenTTL bounds how long an issued session stays valid.
const TokenTTL = 7 * 24 * time.Hour

var ErrInvalidToken = errors.New("auth: invalid session token")

// Session is the identity carried by a verified token.
type Session struct {
	UserID   string
	Username string
}

// Claims is the JWT claim set of a session token.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Manager signs and verifies session tokens with a shared HMAC secret.
type Manager struct {
	secret []byte
}

// NewManager creates a manager. The secret must be non-empty; config
// validation enforces that before we get here.
func NewManager(secret string) *Manager {
	return &Manager{secret: []byte(secret)}
}

// Mint issues a signed token for the given user.
func (m *Manager) Mint(userID, username string) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify parses and validates a token, returning the session it carries.
func (m *Manager) Verify(token string) (Session, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return Session{}, ErrInvalidToken
	}
	return Session{UserID: claims.Subject, Username: claims.Username}, nil
}

// FromRequest extracts and verifies the session cookie.
func (m *Manager) FromRequest(r *http.Request) (Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return Session{}, ErrInvalidToken
	}
	return m.Verify(cookie.Value)
}

// SetCookie attaches the session cookie to a response.
func SetCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(TokenTTL / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
