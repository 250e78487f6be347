package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/dicoevent/dicoevent/web/entity"
	"github.com/dicoevent/dicoevent/web/middleware"
	"github.com/dicoevent/dicoevent/web/permission"
	"github.com/dicoevent/dicoevent/web/service"

	"github.com/gin-gonic/gin"
)

// GroupController serves role management.
type GroupController struct {
	*ResourceController[int, entity.GroupInput, entity.GroupView]
	groups *service.GroupService
}

func NewGroupController(api *gin.RouterGroup, groups *service.GroupService) *GroupController {
	a := &GroupController{groups: groups}
	a.ResourceController = newResourceController[int, entity.GroupInput, entity.GroupView](api.Group("/groups", middleware.PolicyRequired(permission.AdminOrSuperUser)), "group", groups, intParam)
	api.POST("/assign-role", middleware.PolicyRequired(permission.Authenticated), a.assignRole)
	return a
}

func (a *GroupController) assignRole(c *gin.Context) {
	const op = "assign role"
	in := &entity.AssignRoleInput{}
	// an empty body is left to the service, which names the missing keys
	if err := c.ShouldBindJSON(in); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, op, bindError(err))
		return
	}
	if err := a.groups.AssignRole(c.Request.Context(), a.actor(c), in); err != nil {
		respondError(c, op, err)
		return
	}
	c.JSON(http.StatusCreated, entity.Msg{Success: true, Msg: "Role assigned."})
}
