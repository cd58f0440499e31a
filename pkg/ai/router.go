package ai

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultRouterBaseURL targets the hosted OpenRouter-compatible endpoint.
const DefaultRouterBaseURL = "https://openrouter.ai/api/v1"

var (
	routerCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "arena",
		Subsystem: "ai",
		Name:      "router_call_duration_seconds",
		Help:      "Duration of calls to the model-routing service",
	}, []string{"role", "model"})

	routerCallFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Subsystem: "ai",
		Name:      "router_call_failures_total",
		Help:      "Number of failed calls to the model-routing service",
	}, []string{"role", "model"})
)

// RouterConfig configures the client for the model-routing service.
type RouterConfig struct {
	APIKey  string
	BaseURL string
}

// NewRouterClient builds an OpenAI-protocol client pointed at the
// model-routing service.
func NewRouterClient(cfg RouterConfig) (*openai.Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("router api key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL
	if clientConfig.BaseURL == "" {
		clientConfig.BaseURL = DefaultRouterBaseURL
	}

	return openai.NewClientWithConfig(clientConfig), nil
}
