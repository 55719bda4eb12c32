package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/adhunt/internal/application"
	"github.com/oksasatya/adhunt/internal/interface/middleware"
	"github.com/oksasatya/adhunt/pkg/response"
)

type UserHandler struct {
	Identity *application.IdentityService
	Logger   *logrus.Logger
}

func NewUserHandler(identity *application.IdentityService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Identity: identity, Logger: logger}
}

// Absent fields are left unchanged; a role in the body is ignored.
type updateProfileRequest struct {
	Email       *string `json:"email" binding:"omitempty,email,max=254"`
	PhoneNumber *string `json:"phone_number" binding:"omitempty,phone"`
	FirstName   *string `json:"first_name" binding:"omitempty,max=30"`
	LastName    *string `json:"last_name" binding:"omitempty,max=30"`
	MiddleName  *string `json:"middle_name" binding:"omitempty,max=30"`
}

type changePasswordRequest struct {
	OldPassword     string `json:"old_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// GetProfile GET /api/profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	u, err := h.Identity.GetProfile(c.Request.Context(), middleware.ActorFrom(c).UserID)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, application.NewAuthorView(u), "profile", nil)
}

// UpdateProfile PUT /api/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	u, err := h.Identity.UpdateProfile(c.Request.Context(), middleware.ActorFrom(c).UserID, application.UpdateProfileInput{
		Email:      req.Email,
		Phone:      req.PhoneNumber,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		MiddleName: req.MiddleName,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, application.NewAuthorView(u), "profile updated", nil)
}

// ChangePassword POST /api/profile/change-password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	err := h.Identity.ChangePassword(c.Request.Context(), middleware.ActorFrom(c).UserID,
		req.OldPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, map[string]any{"changed": true}, "password changed", nil)
}
