package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	goerrors "github.com/goliatone/go-errors"
	"go.uber.org/zap"

	"github.com/goliatone/go-gridpool/pool"
)

// statusFor maps an error to its HTTP status. Pool text codes win over
// categories: a failed teardown is a server error even though its category
// is operation.
func statusFor(err *goerrors.Error) int {
	switch err.TextCode {
	case pool.TextCodeDestroyFailed:
		return http.StatusInternalServerError
	case pool.TextCodeCreateFailed:
		return http.StatusBadGateway
	}

	switch err.Category {
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryConflict, goerrors.CategoryOperation:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) respondError(c *gin.Context, err error) {
	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	status := statusFor(mapped)

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err),
		)
	}

	c.AbortWithStatusJSON(status, goerrors.ErrorResponse{Error: mapped})
}

func errInvalidQuery(param, value string) *goerrors.Error {
	return goerrors.New("invalid query parameter", goerrors.CategoryBadInput).
		WithTextCode("INVALID_QUERY").
		WithMetadata(map[string]any{"param": param, "value": value})
}
