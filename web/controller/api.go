package controller

import (
	"net/http"

	"github.com/dicoevent/dicoevent/web/entity"
	"github.com/dicoevent/dicoevent/web/middleware"
	"github.com/dicoevent/dicoevent/web/permission"
	"github.com/dicoevent/dicoevent/web/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// APIController mounts every resource under the API prefix.
type APIController struct {
	BaseController
	services *service.Services

	events        *EventController
	tickets       *ResourceController[uuid.UUID, entity.TicketInput, entity.TicketView]
	registrations *RegistrationController
	payments      *ResourceController[uuid.UUID, entity.PaymentInput, entity.PaymentView]
	users         *ResourceController[int, entity.UserInput, entity.UserView]
	groups        *GroupController
	auth          *AuthController
}

// NewAPIController creates a new APIController instance and initializes its routes.
func NewAPIController(g *gin.RouterGroup, services *service.Services, loginLimit middleware.RateLimitConfig) *APIController {
	a := &APIController{services: services}
	a.initRouter(g, loginLimit)
	return a
}

func (a *APIController) initRouter(g *gin.RouterGroup, loginLimit middleware.RateLimitConfig) {
	api := g.Group(entity.APIPrefix)
	api.Use(middleware.Authenticate(a.services.Auth))
	authenticated := middleware.PolicyRequired(permission.Authenticated)

	a.auth = NewAuthController(api.Group("/auth", middleware.RateLimitMiddleware(loginLimit)), a.services.Auth)

	// account creation is open to everyone
	users := api.Group("/users", func(c *gin.Context) {
		if c.Request.Method == http.MethodPost && c.Param("id") == "" {
			c.Next()
			return
		}
		authenticated(c)
	})
	a.users = newResourceController[int, entity.UserInput, entity.UserView](users, "user", a.services.Users, intParam)

	a.events = NewEventController(api.Group("/events", authenticated), a.services.Events, a.services.Posters)
	a.tickets = newResourceController[uuid.UUID, entity.TicketInput, entity.TicketView](api.Group("/tickets", authenticated), "ticket", a.services.Tickets, uuidParam)
	a.registrations = NewRegistrationController(api.Group("/registrations", authenticated), a.services.Registrations)
	a.payments = newResourceController[uuid.UUID, entity.PaymentInput, entity.PaymentView](api.Group("/payments", authenticated), "payment", a.services.Payments, uuidParam)
	a.groups = NewGroupController(api, a.services.Groups)

	api.GET("/status", middleware.PolicyRequired(permission.AdminOrSuperUser), a.status)
}

func (a *APIController) status(c *gin.Context) {
	status, err := a.services.Status.GetStatus(c.Request.Context(), a.actor(c))
	if err != nil {
		respondError(c, "read status", err)
		return
	}
	c.JSON(http.StatusOK, status)
}
