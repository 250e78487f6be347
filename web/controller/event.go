package controller

import (
	"bytes"
	"io"
	"net/http"

	"github.com/dicoevent/dicoevent/web/entity"
	"github.com/dicoevent/dicoevent/web/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EventController serves events and their posters.
type EventController struct {
	*ResourceController[uuid.UUID, entity.EventInput, entity.EventView]
	posters *service.PosterService
}

func NewEventController(g *gin.RouterGroup, events *service.EventService, posters *service.PosterService) *EventController {
	a := &EventController{
		ResourceController: newResourceController[uuid.UUID, entity.EventInput, entity.EventView](g, "event", events, uuidParam),
		posters:            posters,
	}
	g.GET("/:id/posters", a.listPosters)
	g.POST("/:id/posters", a.uploadPoster)
	return a
}

func (a *EventController) listPosters(c *gin.Context) {
	id, ok := uuidParam(c)
	if !ok {
		return
	}
	urls, err := a.posters.List(c.Request.Context(), a.actor(c), id)
	if err != nil {
		respondError(c, "list posters", err)
		return
	}
	c.JSON(http.StatusOK, urls)
}

func (a *EventController) uploadPoster(c *gin.Context) {
	const op = "upload poster"
	id, ok := uuidParam(c)
	if !ok {
		return
	}
	header, err := c.FormFile("image")
	if err != nil {
		respondError(c, op, service.NewValidationError("image", "No file was submitted."))
		return
	}
	file, err := header.Open()
	if err != nil {
		respondError(c, op, err)
		return
	}
	defer file.Close()

	// the declared type is not trusted, sniff the leading bytes
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		respondError(c, op, err)
		return
	}
	head = head[:n]

	view, err := a.posters.Upload(c.Request.Context(), a.actor(c), id, &service.PosterUpload{
		Filename:    header.Filename,
		ContentType: http.DetectContentType(head),
		Size:        header.Size,
		Body:        io.MultiReader(bytes.NewReader(head), file),
	})
	if err != nil {
		respondError(c, op, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}
