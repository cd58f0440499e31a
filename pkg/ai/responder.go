package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Responder collects a single answer from one model per call. Failures are
// folded into the returned text so callers never branch on errors.
type Responder struct {
	client      ChatClient
	maxAttempts int
	tracer      trace.Tracer
	logger      zerolog.Logger
}

// NewResponder builds a responder. maxAttempts below 1 is treated as a
// single attempt; there is no backoff between attempts.
func NewResponder(client ChatClient, maxAttempts int, logger zerolog.Logger) *Responder {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &Responder{
		client:      client,
		maxAttempts: maxAttempts,
		tracer:      otel.Tracer("github.com/evalarena/evalarena-go-api/pkg/ai/responder"),
		logger:      logger.With().Str("component", "responder").Logger(),
	}
}

// GetAnswer asks one model the question and returns the trimmed answer
// text, or a formatted error string when the model is unknown or the
// upstream call fails.
func (r *Responder) GetAnswer(parent context.Context, shortID, question, systemMessage string) string {
	routingID, ok := ResolveRoutingID(shortID)
	if !ok {
		return fmt.Sprintf("Model %s is not supported.", shortID)
	}

	ctx, span := r.tracer.Start(parent, "responder.get_answer", trace.WithAttributes(
		attribute.String("model", routingID),
	))
	defer span.End()

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if systemMessage != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemMessage,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: question,
	})

	request := openai.ChatCompletionRequest{
		Model:    routingID,
		Messages: messages,
	}

	var lastErr error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		start := time.Now()
		resp, err := r.client.CreateChatCompletion(ctx, request)
		duration := time.Since(start)
		routerCallDuration.WithLabelValues("responder", shortID).Observe(duration.Seconds())

		if err == nil && len(resp.Choices) == 0 {
			err = errNoChoices
		}
		if err != nil {
			routerCallFailures.WithLabelValues("responder", shortID).Inc()
			lastErr = err
			continue
		}

		r.logger.Info().
			Str("model", shortID).
			Dur("duration", duration).
			Msg("model answered")

		return strings.TrimSpace(resp.Choices[0].Message.Content)
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	r.logger.Warn().Err(lastErr).Str("model", shortID).Msg("model call failed")

	return fmt.Sprintf("Error getting response from %s via OpenRouter: %s", shortID, upstreamMessage(lastErr))
}

// upstreamMessage prefers the provider-supplied message embedded in an API
// error over the generic wrapped error text.
func upstreamMessage(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.Err != nil {
		return reqErr.Err.Error()
	}
	return err.Error()
}
