package response

import (
	"log"
	"net/http"

	"anoa.com/engagementledger/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Envelope is the uniform response body rendered by every endpoint.
type Envelope struct {
	Code    int    `json:"code"`
	Data    any    `json:"data"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// GetActorID retrieves the authenticated actor ID from the context
func GetActorID(c *gin.Context) (uuid.UUID, error) {
	actorIDStr, exists := c.Get("actor_id")
	if !exists {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	actorID, err := uuid.Parse(actorIDStr.(string))
	if err != nil {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	return actorID, nil
}

// OK renders a success envelope with the given payload
func OK(c *gin.Context, code int, message string, data any) {
	c.JSON(code, Envelope{
		Code:    code,
		Data:    data,
		Message: message,
		Status:  "success",
	})
}

// Error renders a standardized error envelope
func Error(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	// Log server-side errors
	if code >= http.StatusInternalServerError {
		log.Printf("[Internal Error]: %v", err)
	}

	c.JSON(code, Envelope{
		Code:    code,
		Message: err.Error(),
		Status:  "error",
	})
}
