package controller

import (
	"net/http"

	"github.com/dicoevent/dicoevent/web/entity"
	"github.com/dicoevent/dicoevent/web/service"

	"github.com/gin-gonic/gin"
)

// AuthController issues bearer tokens.
type AuthController struct {
	BaseController
	auth *service.AuthService
}

func NewAuthController(g *gin.RouterGroup, auth *service.AuthService) *AuthController {
	a := &AuthController{auth: auth}
	a.initRouter(g)
	return a
}

func (a *AuthController) initRouter(g *gin.RouterGroup) {
	g.POST("/token", a.token)
	g.POST("/token/refresh", a.refresh)
}

func (a *AuthController) token(c *gin.Context) {
	const op = "obtain token"
	in := &entity.TokenInput{}
	if !bindJSON(c, op, in) {
		return
	}
	pair, err := a.auth.Login(c.Request.Context(), in)
	if err != nil {
		respondError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (a *AuthController) refresh(c *gin.Context) {
	const op = "refresh token"
	in := &entity.RefreshInput{}
	if !bindJSON(c, op, in) {
		return
	}
	pair, err := a.auth.Refresh(c.Request.Context(), in)
	if err != nil {
		respondError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}
