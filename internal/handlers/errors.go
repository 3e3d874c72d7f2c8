package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/testplan-ai/backend/internal/services"
	"github.com/testplan-ai/backend/pkg/response"
)

// respondError maps a service failure to the JSON error envelope. Anything
// unclassified becomes a generic 500 and the detail only reaches the log.
func respondError(c *gin.Context, err error) {
	var se *services.ServiceError
	if !errors.As(err, &se) {
		response.Error(c, err)
		return
	}

	switch se.Kind {
	case services.KindValidation, services.KindNotConfigured:
		response.Error(c, response.NewBadRequest(se.Message))
	case services.KindUpstreamAuth:
		response.Error(c, response.NewUnauthorized(se.Message))
	case services.KindNotFound:
		response.Error(c, response.NewNotFound(se.Message))
	case services.KindUpstream:
		_ = c.Error(err)
		response.Error(c, response.NewBadGateway(se.Message))
	default:
		response.Error(c, err)
	}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "Invalid ID")
		return 0, false
	}
	return uint(id), true
}
