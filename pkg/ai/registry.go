package ai

import "strings"

// ModelInfo pairs the routing identifier sent upstream with the
// human-readable name stored on results.
type ModelInfo struct {
	RoutingID   string
	DisplayName string
}

// catalog maps the short identifiers accepted by the API to routing
// identifiers understood by the model-routing service.
var catalog = map[string]ModelInfo{
	"gpt41":    {RoutingID: "openai/gpt-4.1", DisplayName: "GPT-4.1"},
	"gpt4o":    {RoutingID: "openai/gpt-4o", DisplayName: "GPT-4o"},
	"o4mini":   {RoutingID: "openai/o4-mini", DisplayName: "o4-mini"},
	"claude3":  {RoutingID: "anthropic/claude-3.5-sonnet", DisplayName: "Claude 3.5 Sonnet"},
	"gemini":   {RoutingID: "google/gemini-2.0-flash-001", DisplayName: "Gemini 2.0 Flash"},
	"llama3":   {RoutingID: "meta-llama/llama-3.3-70b-instruct", DisplayName: "Llama 3.3 70B"},
	"mistral":  {RoutingID: "mistralai/mistral-large", DisplayName: "Mistral Large"},
	"deepseek": {RoutingID: "deepseek/deepseek-chat", DisplayName: "DeepSeek V3"},
}

func normalizeShortID(shortID string) string {
	return strings.ToLower(strings.TrimSpace(shortID))
}

// ResolveRoutingID maps a short identifier to its routing identifier.
func ResolveRoutingID(shortID string) (string, bool) {
	info, ok := catalog[normalizeShortID(shortID)]
	if !ok {
		return "", false
	}
	return info.RoutingID, true
}

// ResolveDisplayName maps a short identifier to its display name. Unknown
// identifiers echo back unchanged so callers never need a fallback.
func ResolveDisplayName(shortID string) string {
	if info, ok := catalog[normalizeShortID(shortID)]; ok {
		return info.DisplayName
	}
	return shortID
}

// KnownModels lists every supported short identifier.
func KnownModels() []string {
	out := make([]string, 0, len(catalog))
	for id := range catalog {
		out = append(out, id)
	}
	return out
}
