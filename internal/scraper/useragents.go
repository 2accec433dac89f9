package scraper

import (
	"math/rand/v2"
	"slices"

	"github.com/williampepple1/pricewatch/internal/config"
)

// UserAgentPool is an immutable list of user agents, safe for concurrent use
type UserAgentPool struct {
	agents []string
}

// NewUserAgentPool copies agents into a new pool, falling back to the
// built-in list when agents is empty
func NewUserAgentPool(agents []string) *UserAgentPool {
	if len(agents) == 0 {
		agents = config.DefaultUserAgents
	}
	return &UserAgentPool{agents: slices.Clone(agents)}
}

// Random draws a user agent
func (p *UserAgentPool) Random() string {
	return p.agents[rand.IntN(len(p.agents))]
}

// Len returns the pool size
func (p *UserAgentPool) Len() int {
	return len(p.agents)
}

// Contains reports whether ua is in the pool
func (p *UserAgentPool) Contains(ua string) bool {
	return slices.Contains(p.agents, ua)
}
