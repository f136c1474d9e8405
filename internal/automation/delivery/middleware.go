package delivery

import (
	"crypto/subtle"
	"net/http"

	authdelivery "cyra-kanban/internal/auth/delivery"
	authusecase "cyra-kanban/internal/auth/usecase"
	"cyra-kanban/internal/automation/usecase"
	taskdomain "cyra-kanban/internal/task/domain"
	"cyra-kanban/pkg/errutil"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BearerKeyMiddleware admits requests carrying the static automation key, acting as
// the resolved owner. An empty key rejects every request.
func BearerKeyMiddleware(key string, owners usecase.OwnerResolver) gin.HandlerFunc {
	if key == "" {
		zap.L().Warn("[Automation] No API key configured, automation routes are disabled")
	}
	return func(c *gin.Context) {
		token, _ := authdelivery.BearerToken(c)
		if !keyMatches(token, key) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		actAsOwner(c, owners)
	}
}

// KeyOrSession admits either the automation key or a human access token.
func KeyOrSession(key string, owners usecase.OwnerResolver, authUsecase authusecase.AuthUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := authdelivery.BearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if keyMatches(token, key) {
			actAsOwner(c, owners)
			return
		}

		user, err := authUsecase.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set("user", user)
		c.Set("userID", user.ID)
		c.Next()
	}
}

func keyMatches(provided, key string) bool {
	if key == "" || provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(key)) == 1
}

func actAsOwner(c *gin.Context, owners usecase.OwnerResolver) {
	ownerID, err := owners.ResolveOwner(c.Request.Context())
	if err != nil {
		errutil.Respond(c, err)
		c.Abort()
		return
	}
	c.Set("userID", ownerID)
	c.Set("actor", string(taskdomain.ActorAutomation))
	c.Request = c.Request.WithContext(taskdomain.WithActor(c.Request.Context(), taskdomain.ActorAutomation))
	c.Next()
}
