package http

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	oauthStateCookieName = "oauth_state"
	oauthStateMaxAge     = 300
)

type oauthState struct {
	State        string `json:"state"`
	CodeVerifier string `json:"verifier"`
}

// WriteOAuthState keeps the PKCE state and verifier for the callback in a short-lived cookie.
func (t *SessionTransport) WriteOAuthState(c *gin.Context, state, codeVerifier string) {
	data, _ := json.Marshal(oauthState{State: state, CodeVerifier: codeVerifier})
	t.setStateCookie(c, base64.RawURLEncoding.EncodeToString(data), oauthStateMaxAge)
}

// ClearOAuthState drops the state cookie once the callback has used it.
func (t *SessionTransport) ClearOAuthState(c *gin.Context) {
	t.setStateCookie(c, "", -1)
}

// ReadOAuthState returns the stored state and verifier, if the cookie is intact.
func (t *SessionTransport) ReadOAuthState(c *gin.Context) (oauthState, bool) {
	value, err := c.Cookie(oauthStateCookieName)
	if err != nil || value == "" {
		return oauthState{}, false
	}
	data, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return oauthState{}, false
	}
	var payload oauthState
	if err := json.Unmarshal(data, &payload); err != nil {
		return oauthState{}, false
	}
	if payload.State == "" || payload.CodeVerifier == "" {
		return oauthState{}, false
	}
	return payload, true
}

func (t *SessionTransport) setStateCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookieName, value, maxAge, "/", t.domain, t.secure || c.Request.TLS != nil, true)
}
