package fetch

import (
	"math/rand"
	"sync"
)

// defaultUserAgents is a small set of current desktop browser identities.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
}

// AgentRotator hands out a random user agent per request so consecutive
// attempts do not share an obvious fingerprint.
type AgentRotator struct {
	mu     sync.Mutex
	agents []string
	rng    *rand.Rand
}

// NewAgentRotator builds a rotator; a nil or empty list uses the defaults.
func NewAgentRotator(agents []string) *AgentRotator {
	if len(agents) == 0 {
		agents = defaultUserAgents
	}
	return &AgentRotator{
		agents: agents,
		rng:    rand.New(rand.NewSource(rand.Int63())),
	}
}

// Next returns a randomly chosen user agent.
func (r *AgentRotator) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.agents[r.rng.Intn(len(r.agents))]
}
