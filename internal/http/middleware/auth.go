// README: Auth middleware. Validates the Bearer token and stashes the actor
// on the request context for handlers.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dormdrop/internal/auth"
	"dormdrop/internal/types"
)

const actorKey = "actor"

func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := auth.ParseBearer(c.GetHeader("Authorization"), secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// Actor returns the authenticated caller set by Auth. The zero actor means
// the route skipped authentication.
func Actor(c *gin.Context) types.Actor {
	v, ok := c.Get(actorKey)
	if !ok {
		return types.Actor{}
	}
	actor, _ := v.(types.Actor)
	return actor
}
