package response

import (
	"errors"
	"fmt"
	"net/http"

	"anoa.com/folio/pkg/apperror"
	"anoa.com/folio/pkg/dto"
	"anoa.com/folio/pkg/logger"
	"anoa.com/folio/pkg/ratelimiter"
	"anoa.com/folio/pkg/token"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const internalErrorMessage = "Error 500! Something went wrong on the server"

// GetIdentity retrieves the identity attached by the auth middleware.
func GetIdentity(c *gin.Context) (token.Identity, error) {
	value, exists := c.Get(token.ContextKey)
	if !exists {
		return token.Identity{}, apperror.ErrUnauthorized
	}

	identity, ok := value.(token.Identity)
	if !ok || identity.UserID == uuid.Nil {
		return token.Identity{}, apperror.ErrUnauthorized
	}

	return identity, nil
}

// GetUserID retrieves the authenticated user ID from the context
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	identity, err := GetIdentity(c)
	if err != nil {
		return uuid.Nil, err
	}
	return identity.UserID, nil
}

// Message writes a plain {"msg": ...} body.
func Message(c *gin.Context, code int, msg string) {
	c.JSON(code, dto.MessageResponse{Msg: msg})
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	var rateErr *ratelimiter.RateLimitError
	if errors.As(err, &rateErr) {
		c.Header("Retry-After", fmt.Sprintf("%.0f", rateErr.RetryAfter.Seconds()))
	}

	// Log internal errors, never leak them
	if code == http.StatusInternalServerError {
		logger.Get().WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).WithError(err).Error("internal error")
		c.JSON(code, gin.H{"error": internalErrorMessage})
		return
	}

	c.JSON(code, gin.H{"error": err.Error()})
}
