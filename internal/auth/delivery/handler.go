package delivery

import (
	"net/http"

	authdto "worksync-backend/internal/auth/dto"
	"worksync-backend/internal/auth/usecase"
	"worksync-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authUsecase usecase.AuthUsecase
}

func NewAuthHandler(authUsecase usecase.AuthUsecase) *AuthHandler {
	return &AuthHandler{authUsecase: authUsecase}
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req authdto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, err := h.authUsecase.Register(c.Request.Context(), &req)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req authdto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, err := h.authUsecase.Login(c.Request.Context(), &req)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// POST /api/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req authdto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, err := h.authUsecase.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req authdto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.authUsecase.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authUsecase.GetUser(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// POST /api/fcm/register
func (h *AuthHandler) RegisterFCMToken(c *gin.Context) {
	var req authdto.RegisterFCMTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.authUsecase.RegisterFCMToken(c.Request.Context(), c.GetString("userID"), req.Token, req.DeviceInfo); err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "FCM token registered"})
}

// DELETE /api/fcm/:token
func (h *AuthHandler) UnregisterFCMToken(c *gin.Context) {
	if err := h.authUsecase.UnregisterFCMToken(c.Request.Context(), c.Param("token")); err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "FCM token removed"})
}
