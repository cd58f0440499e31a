package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveRoutingIDKnown(t *testing.T) {
	routingID, ok := ResolveRoutingID("gpt41")
	require.True(t, ok)
	require.Equal(t, "openai/gpt-4.1", routingID)
}

func TestResolveRoutingIDNormalizesInput(t *testing.T) {
	routingID, ok := ResolveRoutingID("  GPT41 ")
	require.True(t, ok)
	require.Equal(t, "openai/gpt-4.1", routingID)
}

func TestResolveRoutingIDUnknown(t *testing.T) {
	_, ok := ResolveRoutingID("gpt99")
	require.False(t, ok)
}

func TestResolveDisplayName(t *testing.T) {
	require.Equal(t, "GPT-4.1", ResolveDisplayName("gpt41"))
	require.Equal(t, "Claude 3.5 Sonnet", ResolveDisplayName("claude3"))
}

func TestResolveDisplayNameEchoesUnknown(t *testing.T) {
	require.Equal(t, "mystery-model", ResolveDisplayName("mystery-model"))
}

func TestKnownModelsCoversCatalog(t *testing.T) {
	models := KnownModels()
	require.Len(t, models, len(catalog))
	for _, id := range models {
		_, ok := ResolveRoutingID(id)
		require.True(t, ok)
	}
}
