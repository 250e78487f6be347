package middleware

import (
	"net/http"

	"github.com/dicoevent/dicoevent/web/entity"
	"github.com/dicoevent/dicoevent/web/permission"

	"github.com/gin-gonic/gin"
)

// PolicyRequired rejects the request early when the actor fails the entry
// phase of p. Object checks still happen in the service.
func PolicyRequired(p permission.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := GetActor(c)
		if p.HasPermission(actor) {
			c.Next()
			return
		}
		if actor == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, entity.Detail{Detail: "Authentication credentials were not provided."})
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, entity.Detail{Detail: "You do not have permission to perform this action."})
	}
}
