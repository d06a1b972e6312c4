package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	apperrors "github.com/lirepay/walletcore/pkg/errors"
)

// envelope is the response shape every endpoint returns: success flag, a
// human-readable message, optional payload and, for field-level failures, an
// errors map of field to messages.
type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    interface{}         `json:"data,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

func (s *Server) ok(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

// fail maps a domain or binding error onto the envelope.
func (s *Server) fail(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := map[string][]string{}
		for _, fe := range verrs {
			fields[fe.Field()] = append(fields[fe.Field()], "failed "+fe.Tag()+" validation")
		}
		c.JSON(http.StatusBadRequest, envelope{
			Success: false,
			Message: "invalid request",
			Errors:  fields,
		})
		return
	}

	// Malformed or truncated JSON bodies are user-correctable input errors,
	// not server failures
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		c.JSON(http.StatusBadRequest, envelope{
			Success: false,
			Message: "request body is not valid JSON",
		})
		return
	}

	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus(), envelope{
			Success: false,
			Message: appErr.Message,
			Errors:  appErr.Fields,
		})
		if appErr.Kind == apperrors.KindInternal {
			s.logger.Error("Request failed",
				zap.String("trace_id", c.GetString("trace_id")),
				zap.Error(err))
		}
		return
	}

	s.logger.Error("Unclassified request failure",
		zap.String("trace_id", c.GetString("trace_id")),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, envelope{
		Success: false,
		Message: "internal error",
	})
}
