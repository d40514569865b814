package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gdrocha-io/togglr-backend/internal/model"
	"github.com/gdrocha-io/togglr-backend/internal/service"
	v1 "github.com/gdrocha-io/togglr-backend/pkg/api/v1"

	"github.com/gin-gonic/gin"
)

// TokenParser verifies an access token.
type TokenParser interface {
	ParseAccessToken(token string) (*service.Claims, error)
}

var devActor = service.Actor{Name: "dev-admin", Kind: model.ActorUser, Roles: "ADMIN"}

// JWTMiddleware resolves the request actor from a bearer token. Requests
// without a token continue as the system actor; a token that fails
// verification is rejected.
func JWTMiddleware(parser TokenParser, devMode bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if devMode && c.GetHeader("X-Dev-Pass") == "true" {
			c.Request = c.Request.WithContext(service.WithActor(c.Request.Context(), devActor))
			c.Next()
			return
		}

		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			c.Next()
			return
		}

		claims, err := parser.ParseAccessToken(tokenString)
		if err != nil {
			abortUnauthorized(c, "Invalid access token")
			return
		}

		c.Request = c.Request.WithContext(service.WithActor(c.Request.Context(), claims.Actor()))
		c.Next()
	}
}

// RequireAuth rejects requests that reached it as the system actor.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if service.CurrentActor(c.Request.Context()).Kind == model.ActorSystem {
			abortUnauthorized(c, "Authorization header missing")
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.Split(header, " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, v1.Error{
		Error:     "Unauthorized",
		Message:   message,
		Status:    http.StatusUnauthorized,
		Timestamp: time.Now(),
	})
}
