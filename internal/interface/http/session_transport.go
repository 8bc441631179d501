package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/malina-auth/internal/domain/auth"
	"github.com/yanqian/malina-auth/internal/infra/config"
)

const (
	accessCookieName  = "Authentification"
	refreshCookieName = "Refresh"
)

// SessionTransport moves tokens between the HTTP exchange and the service. Tokens
// travel in HttpOnly cookies and in the JSON body; the access token may also arrive
// as an Authorization bearer header.
type SessionTransport struct {
	secure bool
	domain string
}

// NewSessionTransport builds the transport from cookie settings.
func NewSessionTransport(cfg config.CookieConfig) *SessionTransport {
	return &SessionTransport{secure: cfg.Secure, domain: cfg.Domain}
}

// WriteSession sets both cookies with the absolute expiry of their token.
func (t *SessionTransport) WriteSession(c *gin.Context, pair auth.TokenPair) {
	t.setCookie(c, accessCookieName, pair.Access.Value, pair.Access.ExpiresAt)
	t.setCookie(c, refreshCookieName, pair.Refresh.Value, pair.Refresh.ExpiresAt)
}

// ClearSession expires both cookies.
func (t *SessionTransport) ClearSession(c *gin.Context) {
	t.setCookie(c, accessCookieName, "", time.Unix(0, 0))
	t.setCookie(c, refreshCookieName, "", time.Unix(0, 0))
}

// AccessToken prefers the Authorization header and falls back to the cookie.
func (t *SessionTransport) AccessToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	value, err := c.Cookie(accessCookieName)
	if err != nil {
		return ""
	}
	return value
}

// RefreshToken prefers the value from the request body and falls back to the cookie.
func (t *SessionTransport) RefreshToken(c *gin.Context, fromBody string) string {
	if token := strings.TrimSpace(fromBody); token != "" {
		return token
	}
	value, err := c.Cookie(refreshCookieName)
	if err != nil {
		return ""
	}
	return value
}

func (t *SessionTransport) setCookie(c *gin.Context, name, value string, expires time.Time) {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   t.domain,
		Expires:  expires.UTC(),
		Secure:   t.secure || c.Request.TLS != nil,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if value == "" {
		cookie.MaxAge = -1
	}
	http.SetCookie(c.Writer, cookie)
}
