package controller

import (
	"net/http"

	"github.com/dicoevent/dicoevent/web/entity"
	"github.com/dicoevent/dicoevent/web/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RegistrationController struct {
	*ResourceController[uuid.UUID, entity.RegistrationInput, entity.RegistrationView]
	registrations *service.RegistrationService
}

func NewRegistrationController(g *gin.RouterGroup, registrations *service.RegistrationService) *RegistrationController {
	a := &RegistrationController{
		ResourceController: newResourceController[uuid.UUID, entity.RegistrationInput, entity.RegistrationView](g, "registration", registrations, uuidParam),
		registrations:      registrations,
	}
	g.POST("/bulk-delete", a.bulkDelete)
	return a
}

// bulkDelete removes every listed registration or none of them.
func (a *RegistrationController) bulkDelete(c *gin.Context) {
	const op = "bulk delete registrations"
	in := &entity.BulkDeleteInput{}
	if !bindJSON(c, op, in) {
		return
	}
	if err := a.registrations.BulkDelete(c.Request.Context(), a.actor(c), in.Ids); err != nil {
		respondError(c, op, err)
		return
	}
	c.Status(http.StatusNoContent)
}
