package api

import (
	"errors"
	"net/http"

	"github.com/gdrocha-io/togglr-backend/internal/dto/req"
	"github.com/gdrocha-io/togglr-backend/internal/dto/resp"
	"github.com/gdrocha-io/togglr-backend/internal/model"
	"github.com/gdrocha-io/togglr-backend/internal/service"
	"github.com/gdrocha-io/togglr-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var body req.LoginReq
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}

	tokens, err := h.svc.Login(c.Request.Context(), body)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(c, http.StatusUnauthorized, "Unauthorized", "invalid username or password")
			return
		}
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokens)
}

func (h *AuthHandler) ClientLogin(c *gin.Context) {
	var body req.ClientLoginReq
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}

	tokens, err := h.svc.ClientLogin(c.Request.Context(), body)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(c, http.StatusUnauthorized, "Unauthorized", "invalid client credentials")
			return
		}
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokens)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var body req.RefreshReq
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}

	tokens, err := h.svc.Refresh(c.Request.Context(), body.RefreshToken)
	if err != nil {
		writeError(c, http.StatusUnauthorized, "Unauthorized", "invalid refresh token")
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// Logout drops the refresh session of the calling user. Mounted behind
// RequireAuth.
func (h *AuthHandler) Logout(c *gin.Context) {
	actor := service.CurrentActor(c.Request.Context())

	if err := h.svc.Logout(c.Request.Context(), actor.Name); err != nil {
		logger.Error("logout failed", zap.String("subject", actor.Name), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *AuthHandler) GetProfile(c *gin.Context) {
	actor := service.CurrentActor(c.Request.Context())

	kind := service.TokenTypeUser
	if actor.Kind == model.ActorClient {
		kind = service.TokenTypeClient
	}
	c.JSON(http.StatusOK, resp.ProfileResp{
		Name:   actor.Name,
		Type:   kind,
		Roles:  actor.Roles,
		Scopes: actor.Scopes,
	})
}
