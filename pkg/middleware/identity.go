package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/slspinola/bee2waste-sub002/pkg/errors"
)

// Operator identity headers set by the upstream auth gateway. The service
// trusts the gateway; it never verifies credentials itself.
const (
	HeaderOperatorID   = "X-Operator-ID"
	HeaderOperatorName = "X-Operator-Name"
	HeaderParkID       = "X-Park-ID"
)

// Context keys for operator identity
const (
	ContextKeyOperatorID   = "operatorId"
	ContextKeyOperatorName = "operatorName"
	ContextKeyParkID       = "parkId"
)

// OperatorIdentity extracts the authenticated operator from the gateway
// headers. Mutating endpoints require it so added_by/resolved_by fields are
// always attributable.
func OperatorIdentity(required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		operatorID := c.GetHeader(HeaderOperatorID)
		if operatorID == "" && required {
			AbortWithAppError(c, errors.ErrUnauthorized("operator identity missing"))
			return
		}
		if operatorID != "" {
			c.Set(ContextKeyOperatorID, operatorID)
		}
		if name := c.GetHeader(HeaderOperatorName); name != "" {
			c.Set(ContextKeyOperatorName, name)
		}
		if parkID := c.GetHeader(HeaderParkID); parkID != "" {
			c.Set(ContextKeyParkID, parkID)
		}
		c.Next()
	}
}

// GetOperatorID returns the authenticated operator id, empty when absent.
func GetOperatorID(c *gin.Context) string {
	if val, ok := c.Get(ContextKeyOperatorID); ok {
		if id, ok := val.(string); ok {
			return id
		}
	}
	return ""
}

// GetParkID returns the park scope from the gateway, empty when absent.
func GetParkID(c *gin.Context) string {
	if val, ok := c.Get(ContextKeyParkID); ok {
		if id, ok := val.(string); ok {
			return id
		}
	}
	return ""
}
