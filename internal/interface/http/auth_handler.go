package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/adhunt/internal/application"
	"github.com/oksasatya/adhunt/internal/domain/errs"
	"github.com/oksasatya/adhunt/internal/interface/middleware"
	"github.com/oksasatya/adhunt/pkg/helpers"
	"github.com/oksasatya/adhunt/pkg/response"
)

type AuthHandler struct {
	Identity *application.IdentityService
	Cookies  *helpers.Manager
	Logger   *logrus.Logger
}

func NewAuthHandler(identity *application.IdentityService, cookies *helpers.Manager, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Identity: identity, Cookies: cookies, Logger: logger}
}

// role is not accepted: every registration starts as a plain user.
type registerRequest struct {
	Email       string `json:"email" binding:"required,email,max=254"`
	Password    string `json:"password" binding:"required"`
	FirstName   string `json:"first_name" binding:"required,max=30"`
	LastName    string `json:"last_name" binding:"required,max=30"`
	MiddleName  string `json:"middle_name" binding:"max=30"`
	PhoneNumber string `json:"phone_number" binding:"required,phone"`
}

type tokenRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type tokenResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (h *AuthHandler) issue(c *gin.Context, status int, pair application.TokenPair, message string) {
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success(c, status, tokenResponse{Access: pair.AccessToken, Refresh: pair.RefreshToken}, message,
		map[string]any{"access_expires_at": pair.AccessTokenExpiry, "refresh_expires_at": pair.RefreshTokenExpiry})
}

// Register POST /api/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	_, pair, err := h.Identity.Register(c.Request.Context(), application.RegisterInput{
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		MiddleName: req.MiddleName,
		Phone:      req.PhoneNumber,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.issue(c, http.StatusCreated, pair, "registered")
}

// Token POST /api/token
func (h *AuthHandler) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	_, pair, err := h.Identity.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.issue(c, http.StatusOK, pair, "login successful")
}

// Refresh POST /api/token/refresh takes the refresh token from the body or
// the refresh_token cookie.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	_ = c.ShouldBindJSON(&req)
	if req.Refresh == "" {
		req.Refresh, _ = c.Cookie(helpers.RefreshCookie)
	}
	if req.Refresh == "" {
		writeError(c, h.Logger, errs.ErrUnauthorized)
		return
	}
	pair, err := h.Identity.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.issue(c, http.StatusOK, pair, "token refreshed")
}

// Logout POST /api/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.Identity.Logout(c.Request.Context(), middleware.ActorFrom(c).UserID); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, map[string]any{"logged_out": true}, "logged out", nil)
}
