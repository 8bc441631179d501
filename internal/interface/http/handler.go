package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/malina-auth/internal/domain/auth"
)

// AuthHandler wires the HTTP transport to the auth service.
type AuthHandler struct {
	svc               auth.Service
	transport         *SessionTransport
	postLoginRedirect string
	logger            *slog.Logger
}

// NewAuthHandler constructs the auth HTTP handler.
func NewAuthHandler(svc auth.Service, transport *SessionTransport, google auth.GoogleConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:               svc,
		transport:         transport,
		postLoginRedirect: google.PostLoginRedirectURL,
		logger:            logger.With("component", "http.auth"),
	}
}

type userResponse struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	VerifiedEmail bool      `json:"verifiedEmail"`
	VerifiedPhone bool      `json:"verifiedPhone"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func newUserResponse(view auth.IdentityView) userResponse {
	return userResponse{
		ID:            view.ID,
		Username:      view.Username,
		Email:         view.Email,
		VerifiedEmail: view.VerifiedEmail,
		VerifiedPhone: view.VerifiedPhone,
		CreatedAt:     view.CreatedAt,
		UpdatedAt:     view.UpdatedAt,
	}
}

type sessionResponse struct {
	User                  userResponse `json:"user"`
	AccessToken           string       `json:"accessToken"`
	AccessTokenExpiresAt  time.Time    `json:"accessTokenExpiresAt"`
	RefreshToken          string       `json:"refreshToken"`
	RefreshTokenExpiresAt time.Time    `json:"refreshTokenExpiresAt"`
}

func newSessionResponse(resp auth.LoginResponse) sessionResponse {
	return sessionResponse{
		User:                  newUserResponse(resp.User),
		AccessToken:           resp.Tokens.Access.Value,
		AccessTokenExpiresAt:  resp.Tokens.Access.ExpiresAt,
		RefreshToken:          resp.Tokens.Refresh.Value,
		RefreshTokenExpiresAt: resp.Tokens.Refresh.ExpiresAt,
	}
}

// Register creates an identity and signs it in.
func (h *AuthHandler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "invalid request body", err))
		return
	}
	resp, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, authHTTPError(err))
		return
	}
	h.transport.WriteSession(c, resp.Tokens)
	c.JSON(http.StatusCreated, newSessionResponse(resp))
}

// Login signs in with email and password.
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "invalid request body", err))
		return
	}
	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, loginHTTPError(err))
		return
	}
	h.transport.WriteSession(c, resp.Tokens)
	c.JSON(http.StatusOK, newSessionResponse(resp))
}

// Refresh exchanges a refresh token for a new token pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req auth.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "invalid request body", err))
		return
	}
	token := h.transport.RefreshToken(c, req.RefreshToken)
	if token == "" {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing refresh token", nil))
		return
	}
	resp, err := h.svc.Refresh(c.Request.Context(), token)
	if err != nil {
		abortWithError(c, authHTTPError(err))
		return
	}
	h.transport.WriteSession(c, resp.Tokens)
	c.JSON(http.StatusOK, newSessionResponse(resp))
}

// Logout clears the session cookies. Issued tokens stay valid until they expire.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.transport.ClearSession(c)
	c.Status(http.StatusNoContent)
}

// GoogleLogin starts the Google OIDC flow.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	state, verifier, challenge, err := auth.NewOAuthState()
	if err != nil {
		abortWithError(c, internalError(err))
		return
	}
	url, err := h.svc.GoogleAuthURL(c.Request.Context(), state, challenge)
	if err != nil {
		abortWithError(c, authHTTPError(err))
		return
	}
	h.transport.WriteOAuthState(c, state, verifier)
	c.Redirect(http.StatusFound, url)
}

// GoogleCallback completes the Google OIDC flow.
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		h.transport.ClearOAuthState(c)
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "oauth_denied", errParam, nil))
		return
	}
	stored, ok := h.transport.ReadOAuthState(c)
	h.transport.ClearOAuthState(c)
	if !ok || stored.State != c.Query("state") {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_state", "oauth state mismatch", nil))
		return
	}
	resp, err := h.svc.GoogleCallback(c.Request.Context(), c.Query("code"), stored.CodeVerifier)
	if err != nil {
		abortWithError(c, authHTTPError(err))
		return
	}
	h.transport.WriteSession(c, resp.Tokens)
	if h.postLoginRedirect != "" {
		c.Redirect(http.StatusFound, h.postLoginRedirect)
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(resp))
}

// Me returns the signed-in identity.
func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := getIdentity(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing identity", nil))
		return
	}
	view, err := h.svc.Profile(c.Request.Context(), identity.ID)
	if err != nil {
		abortWithError(c, authHTTPError(err))
		return
	}
	c.JSON(http.StatusOK, newUserResponse(view))
}

// ChangePassword replaces the password of the signed-in identity.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	identity, ok := getIdentity(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing identity", nil))
		return
	}
	var req auth.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "invalid request body", err))
		return
	}
	if err := h.svc.ChangePassword(c.Request.Context(), identity.ID, req); err != nil {
		abortWithError(c, authHTTPError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteAccount removes the signed-in identity and clears its session.
func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	identity, ok := getIdentity(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing identity", nil))
		return
	}
	if err := h.svc.DeleteAccount(c.Request.Context(), identity.ID); err != nil {
		abortWithError(c, authHTTPError(err))
		return
	}
	h.logger.Info("account deleted", "identity_id", identity.ID)
	h.transport.ClearSession(c)
	c.Status(http.StatusNoContent)
}
