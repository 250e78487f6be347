package controller

import (
	"context"
	"net/http"

	"github.com/dicoevent/dicoevent/web/cache"
	"github.com/dicoevent/dicoevent/web/permission"

	"github.com/gin-gonic/gin"
)

// crudService is the shape shared by every resource service.
type crudService[ID, In, Out any] interface {
	List(ctx context.Context, actor *permission.Actor) ([]byte, cache.Source, error)
	Get(ctx context.Context, actor *permission.Actor, id ID) ([]byte, cache.Source, error)
	Create(ctx context.Context, actor *permission.Actor, in *In) (*Out, error)
	Update(ctx context.Context, actor *permission.Actor, id ID, in *In) (*Out, error)
	Delete(ctx context.Context, actor *permission.Actor, id ID) error
}

// ResourceController serves the collection and instance routes of one
// resource type.
type ResourceController[ID, In, Out any] struct {
	BaseController
	name    string
	service crudService[ID, In, Out]
	param   func(c *gin.Context) (ID, bool)
}

func newResourceController[ID, In, Out any](g *gin.RouterGroup, name string, s crudService[ID, In, Out], param func(*gin.Context) (ID, bool)) *ResourceController[ID, In, Out] {
	a := &ResourceController[ID, In, Out]{name: name, service: s, param: param}
	a.initRouter(g)
	return a
}

func (a *ResourceController[ID, In, Out]) initRouter(g *gin.RouterGroup) {
	g.GET("", a.list)
	g.POST("", a.create)
	g.GET("/:id", a.get)
	g.PUT("/:id", a.update)
	g.DELETE("/:id", a.delete)
}

func (a *ResourceController[ID, In, Out]) list(c *gin.Context) {
	body, src, err := a.service.List(c.Request.Context(), a.actor(c))
	if err != nil {
		respondError(c, "list "+a.name+"s", err)
		return
	}
	respondCached(c, body, src)
}

func (a *ResourceController[ID, In, Out]) get(c *gin.Context) {
	id, ok := a.param(c)
	if !ok {
		return
	}
	body, src, err := a.service.Get(c.Request.Context(), a.actor(c), id)
	if err != nil {
		respondError(c, "retrieve "+a.name, err)
		return
	}
	respondCached(c, body, src)
}

func (a *ResourceController[ID, In, Out]) create(c *gin.Context) {
	op := "create " + a.name
	in := new(In)
	if !bindJSON(c, op, in) {
		return
	}
	out, err := a.service.Create(c.Request.Context(), a.actor(c), in)
	if err != nil {
		respondError(c, op, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (a *ResourceController[ID, In, Out]) update(c *gin.Context) {
	op := "update " + a.name
	id, ok := a.param(c)
	if !ok {
		return
	}
	in := new(In)
	if !bindJSON(c, op, in) {
		return
	}
	out, err := a.service.Update(c.Request.Context(), a.actor(c), id, in)
	if err != nil {
		respondError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (a *ResourceController[ID, In, Out]) delete(c *gin.Context) {
	id, ok := a.param(c)
	if !ok {
		return
	}
	if err := a.service.Delete(c.Request.Context(), a.actor(c), id); err != nil {
		respondError(c, "delete "+a.name, err)
		return
	}
	c.Status(http.StatusNoContent)
}
