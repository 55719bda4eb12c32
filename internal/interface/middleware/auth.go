package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/adhunt/internal/domain/policy"
	"github.com/oksasatya/adhunt/pkg/helpers"
	"github.com/oksasatya/adhunt/pkg/response"
)

const (
	CtxActorKey  = "actor"
	CtxUserIDKey = "userID"
)

// ActorResolver turns verified claims into an actor, checking the session
// and reading the role from the stored user.
type ActorResolver interface {
	ActorForClaims(ctx context.Context, claims *helpers.Claims) (policy.Actor, error)
}

// bearerOrCookie prefers the Authorization header over the access_token cookie.
func bearerOrCookie(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(strings.TrimSpace(h), " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if token, err := c.Cookie(helpers.AccessCookie); err == nil {
		return token
	}
	return ""
}

func setActor(c *gin.Context, actor policy.Actor) {
	c.Set(CtxActorKey, actor)
	c.Set(CtxUserIDKey, actor.UserID)
}

// Auth requires a valid access token with a live session.
func Auth(jwt *helpers.JWTManager, actors ActorResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerOrCookie(c)
		if token == "" {
			response.Error[any](c, http.StatusUnauthorized, "missing access token", nil)
			return
		}
		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			response.Error[any](c, http.StatusUnauthorized, "invalid access token", nil)
			return
		}
		actor, err := actors.ActorForClaims(c.Request.Context(), claims)
		if err != nil {
			response.Error[any](c, http.StatusUnauthorized, "session not found", nil)
			return
		}
		setActor(c, actor)
		c.Next()
	}
}

// OptionalAuth resolves the actor when a usable token is present and
// otherwise continues as anonymous.
func OptionalAuth(jwt *helpers.JWTManager, actors ActorResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := policy.Anonymous()
		if token := bearerOrCookie(c); token != "" {
			if claims, err := jwt.ParseAccessToken(token); err == nil {
				if resolved, err := actors.ActorForClaims(c.Request.Context(), claims); err == nil {
					actor = resolved
				}
			}
		}
		setActor(c, actor)
		c.Next()
	}
}

// ActorFrom returns the actor stored by Auth or OptionalAuth, or an
// anonymous actor.
func ActorFrom(c *gin.Context) policy.Actor {
	if v, ok := c.Get(CtxActorKey); ok {
		if actor, ok := v.(policy.Actor); ok {
			return actor
		}
	}
	return policy.Anonymous()
}
