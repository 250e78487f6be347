package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/dicoevent/dicoevent/logger"
	"github.com/dicoevent/dicoevent/web/cache"
	"github.com/dicoevent/dicoevent/web/entity"
	"github.com/dicoevent/dicoevent/web/middleware"
	"github.com/dicoevent/dicoevent/web/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	msgNotAuthenticated = "Authentication credentials were not provided."
	msgPermissionDenied = "You do not have permission to perform this action."
	msgNotFound         = "Not found."
	msgServerError      = "A server error occurred."
)

func init() {
	// report field errors under their JSON names
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	}
}

// respondError logs err with the actor and operation, then writes the
// matching status and body.
func respondError(c *gin.Context, op string, err error) {
	actor := "anonymous"
	if a := middleware.GetActor(c); a != nil {
		actor = a.Username
	}

	var verr *service.ValidationError
	var nf *service.NotFoundError
	var ext *service.ExternalServiceError
	switch {
	case errors.As(err, &verr):
		logger.Warningf("%s by %s rejected: %v", op, actor, err)
		c.JSON(http.StatusBadRequest, entity.FieldErrors(verr.Fields))
	case errors.As(err, &nf):
		logger.Warningf("%s by %s: %s %v not found", op, actor, nf.Resource, nf.Id)
		c.JSON(http.StatusNotFound, entity.Detail{Detail: nf.Error()})
	case errors.Is(err, service.ErrUnauthenticated):
		logger.Warningf("%s by %s: %v", op, actor, err)
		c.JSON(http.StatusUnauthorized, entity.Detail{Detail: msgNotAuthenticated})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, entity.Detail{Detail: err.Error()})
	case errors.Is(err, service.ErrInvalidToken):
		logger.Warningf("%s by %s: %v", op, actor, err)
		c.JSON(http.StatusUnauthorized, entity.Detail{Detail: "Token is invalid or expired"})
	case errors.Is(err, service.ErrPermissionDenied):
		logger.Warningf("%s by %s: permission denied", op, actor)
		c.JSON(http.StatusForbidden, entity.Detail{Detail: msgPermissionDenied})
	case errors.As(err, &ext):
		logger.Errorf("%s by %s: %v", op, actor, err)
		c.JSON(http.StatusBadGateway, entity.Detail{Detail: fmt.Sprintf("%s is unavailable, try again later.", ext.Service)})
	default:
		logger.Errorf("%s by %s failed: %v", op, actor, err)
		c.JSON(http.StatusInternalServerError, entity.Detail{Detail: msgServerError})
	}
}

// respondCached writes an already serialized representation.
func respondCached(c *gin.Context, body []byte, src cache.Source) {
	c.Header("X-Data-Source", string(src))
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// bindJSON decodes and validates the request body. On failure it has
// already written a 400 and returns false.
func bindJSON(c *gin.Context, op string, obj any) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}
	respondError(c, op, bindError(err))
	return false
}

// bindError converts decoding and validation failures to field errors.
func bindError(err error) *service.ValidationError {
	verr := &service.ValidationError{}

	var fieldErrs validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &fieldErrs):
		for _, fe := range fieldErrs {
			verr.Add(fe.Field(), fieldMessage(fe))
		}
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "non_field_errors"
		}
		verr.Add(field, "Incorrect type.")
	case errors.As(err, &syntaxErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		verr.Add("non_field_errors", "JSON parse error.")
	default:
		verr.Add("non_field_errors", err.Error())
	}
	return verr
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s elements.", fe.Param())
	case "gtefield":
		return fmt.Sprintf("Must not be earlier than %s.", toSnake(fe.Param()))
	case "email":
		return "Enter a valid email address."
	default:
		return "Invalid value."
	}
}

// toSnake turns a Go field name such as StartTime into start_time.
func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// uuidParam parses the :id path parameter. Malformed ids are not found.
func uuidParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, entity.Detail{Detail: msgNotFound})
		return uuid.Nil, false
	}
	return id, true
}

func intParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, entity.Detail{Detail: msgNotFound})
		return 0, false
	}
	return id, true
}
