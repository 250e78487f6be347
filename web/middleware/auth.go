// Package middleware holds the gin handlers that run before every API request.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/dicoevent/dicoevent/logger"
	"github.com/dicoevent/dicoevent/web/entity"
	"github.com/dicoevent/dicoevent/web/permission"

	"github.com/gin-gonic/gin"
)

// ActorKey is the gin context key holding the authenticated *permission.Actor.
const ActorKey = "actor"

// ActorResolver turns a bearer token into the principal it was issued to.
type ActorResolver interface {
	Actor(ctx context.Context, token string) (*permission.Actor, error)
}

// Authenticate resolves the bearer token, if any, and stores the actor in the
// context. Requests without a token continue anonymously; each operation
// decides whether that is allowed. A token that does not verify is rejected.
func Authenticate(resolver ActorResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, entity.Detail{Detail: "Authorization header must contain two space-delimited values"})
			return
		}

		actor, err := resolver.Actor(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			logger.Warningf("Rejected token from %s: %v", c.ClientIP(), err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, entity.Detail{Detail: "Given token not valid for any token type"})
			return
		}
		c.Set(ActorKey, actor)
		c.Next()
	}
}

// GetActor returns the request principal, or nil for anonymous requests.
func GetActor(c *gin.Context) *permission.Actor {
	v, ok := c.Get(ActorKey)
	if !ok {
		return nil
	}
	actor, _ := v.(*permission.Actor)
	return actor
}
