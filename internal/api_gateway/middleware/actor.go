package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// The upstream auth gateway authenticates the caller and sets these headers
const (
	ActorIDHeader   = "X-Actor-ID"
	ActorRoleHeader = "X-Actor-Role"

	ActorIDKey  = "actor_id"
	RoleAdmin   = "admin"
	RoleService = "service" // payment provider integrations
)

// Actor stores the calling actor id, if any, for handlers and the request log
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := strings.TrimSpace(c.GetHeader(ActorIDHeader)); id != "" {
			c.Set(ActorIDKey, id)
		}
		c.Next()
	}
}

// GetActorID returns the actor id set by Actor
func GetActorID(c *gin.Context) string {
	return c.GetString(ActorIDKey)
}

// hasRole reports whether an identified caller carries one of roles
func hasRole(c *gin.Context, roles ...string) bool {
	if strings.TrimSpace(c.GetHeader(ActorIDHeader)) == "" {
		return false
	}
	role := c.GetHeader(ActorRoleHeader)
	for _, r := range roles {
		if strings.EqualFold(role, r) {
			return true
		}
	}
	return false
}

// CanActFor reports whether the caller may move coins of accountID
func CanActFor(c *gin.Context, accountID string) bool {
	actorID := strings.TrimSpace(c.GetHeader(ActorIDHeader))
	if actorID == "" {
		return false
	}
	return actorID == strings.TrimSpace(accountID) || hasRole(c, RoleAdmin)
}

// RequireAdmin rejects callers without the admin role or an actor id
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(RoleAdmin)
}

// RequireRole rejects callers that carry none of roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !hasRole(c, roles...) {
			forbid(c, "Role "+strings.Join(roles, " or ")+" required")
			return
		}
		c.Next()
	}
}

// RequireAccountOwner lets a caller touch only the wallet named by the path
// parameter. Admins may act on any wallet.
func RequireAccountOwner(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CanActFor(c, c.Param(param)) {
			forbid(c, "Not allowed to access this wallet")
			return
		}
		c.Next()
	}
}

// Forbid aborts with the 403 envelope
func Forbid(c *gin.Context, message string) {
	forbid(c, message)
}

func forbid(c *gin.Context, message string) {
	response := gin.H{
		"error": gin.H{
			"code":    "FORBIDDEN",
			"message": message,
		},
	}
	if correlationID := GetCorrelationID(c); correlationID != "" {
		response["correlation_id"] = correlationID
	}
	c.AbortWithStatusJSON(http.StatusForbidden, response)
}
