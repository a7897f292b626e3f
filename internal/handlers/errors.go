package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/services"
	"github.com/nisalrtu/digibrand-cms-sub002/pkg/logger"
)

// ErrorBody is the payload of every failed request
type ErrorBody struct {
	Code    string            `json:"code" example:"AMOUNT_EXCEEDS_BALANCE"`
	Message string            `json:"message" example:"amount exceeds the outstanding balance"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ErrorResponse wraps ErrorBody under "error"
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	case services.KindForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// respondError writes err in the standard error shape. Untyped errors and
// storage failures become 500s, are logged and reported to Sentry; their
// cause never reaches the client.
func respondError(c *gin.Context, err error) {
	e, ok := services.AsError(err)
	if !ok {
		e = &services.Error{Kind: services.KindStorage, Code: services.ErrStorage.Code, Message: "internal server error", Err: err}
	}

	status := statusFor(e.Kind)
	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("request failed",
			"code", e.Code,
			"path", c.FullPath(),
			"error", err,
		)
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
		_ = c.Error(err)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{
		Code:    e.Code,
		Message: e.Message,
		Fields:  e.Fields,
	}})
}

// bindJSON binds and validates the body with gin's validator. Validation
// failures are reported per field.
func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		respondError(c, bindError(err))
		return false
	}
	return true
}

func bindError(err error) error {
	if fields := services.ValidationFields(err); len(fields) > 0 {
		return &services.Error{Kind: services.KindValidation, Code: services.ErrValidation.Code, Message: services.ErrValidation.Message, Fields: fields}
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return &services.Error{Kind: services.KindValidation, Code: services.ErrValidation.Code, Message: "request body is required"}
	case errors.As(err, &typeErr):
		return &services.Error{Kind: services.KindValidation, Code: services.ErrValidation.Code, Message: "invalid value",
			Fields: map[string]string{typeErr.Field: "has the wrong type"}}
	case errors.As(err, &syntaxErr):
		return &services.Error{Kind: services.KindValidation, Code: services.ErrValidation.Code, Message: "malformed JSON body"}
	}
	return &services.Error{Kind: services.KindValidation, Code: services.ErrValidation.Code, Message: err.Error()}
}
