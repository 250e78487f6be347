// Package controller maps the REST API onto the service layer.
package controller

import (
	"github.com/dicoevent/dicoevent/web/middleware"
	"github.com/dicoevent/dicoevent/web/permission"

	"github.com/gin-gonic/gin"
)

// BaseController provides common functionality for all controllers.
type BaseController struct{}

// actor returns the authenticated principal, or nil for anonymous requests.
func (a *BaseController) actor(c *gin.Context) *permission.Actor {
	return middleware.GetActor(c)
}
