package cache

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// FanOutKey caches a full fan-out result map per agent and vehicle plate.
// The plate is the only cache key component besides the agent; changing other
// request fields does not invalidate the entry.
func FanOutKey(agentID uuid.UUID, placa string) string {
	return fmt.Sprintf("fanout:%s:%s", agentID, strings.ToUpper(placa))
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
