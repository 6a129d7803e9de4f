package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// ActorAttributes tags the New Relic transaction started by nrgin with the
// caller's identity. It does nothing when the agent is disabled.
func ActorAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		if txn := nrgin.Transaction(c); txn != nil {
			if actor, ok := ActorFrom(c); ok {
				txn.AddAttribute("actor.id", actor.ID)
				txn.AddAttribute("actor.role", string(actor.Role))
			}
		}
		c.Next()
	}
}
