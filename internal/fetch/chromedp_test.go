package fetch

import (
	"testing"

	"github.com/chromedp/cdproto/emulation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNavigationOverridesUserAgentPerFetch(t *testing.T) {
	var html string
	tasks := navigationTasks("https://example.com", "agent-one", &html)

	var override *emulation.SetUserAgentOverrideParams
	for _, task := range tasks {
		if p, ok := task.(*emulation.SetUserAgentOverrideParams); ok {
			override = p
			break
		}
	}
	require.NotNil(t, override, "every navigation must carry its own user agent")
	assert.Equal(t, "agent-one", override.UserAgent)

	second := navigationTasks("https://example.com", "agent-two", &html)
	for _, task := range second {
		if p, ok := task.(*emulation.SetUserAgentOverrideParams); ok {
			assert.Equal(t, "agent-two", p.UserAgent)
		}
	}
}
