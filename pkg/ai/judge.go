package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"text/template"
	"time"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultJudgeModel is the routing identifier used to score answers when
// no judge model is configured.
const DefaultJudgeModel = "openai/gpt-4o-mini"

// judgeFallbackReasoning is returned whenever the judge call or its output
// cannot be used.
const judgeFallbackReasoning = "Error during evaluation."

const judgePromptTemplate = `You are a precise and objective evaluator. Compare the model response against the reference answer and decide whether the response is correct.

[QUESTION]
{{.Question}}

[REFERENCE ANSWER]
{{.ReferenceAnswer}}

[MODEL RESPONSE]
{{.ModelResponse}}

A response is correct when it conveys the same essential facts as the reference answer; wording differences do not matter. Respond with JSON {"is_correct": true/false, "reasoning": "..."}.`

var judgePromptTmpl = template.Must(template.New("judge").Parse(judgePromptTemplate))

const verdictSchemaJSON = `{
	"type": "object",
	"required": ["is_correct", "reasoning"],
	"properties": {
		"is_correct": {"type": "boolean"},
		"reasoning": {"type": "string"}
	}
}`

var verdictSchema = jsonschema.MustCompileString("verdict.json", verdictSchemaJSON)

type judgePromptData struct {
	Question        string
	ReferenceAnswer string
	ModelResponse   string
}

// Judge scores candidate answers against reference answers using a
// designated judge model. It never fails: any problem yields the fixed
// fallback verdict.
type Judge struct {
	client      ChatClient
	model       string
	maxAttempts int
	tracer      trace.Tracer
	logger      zerolog.Logger
}

// NewJudge builds a judge bound to the given routing model identifier.
func NewJudge(client ChatClient, model string, maxAttempts int, logger zerolog.Logger) *Judge {
	if model == "" {
		model = DefaultJudgeModel
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &Judge{
		client:      client,
		model:       model,
		maxAttempts: maxAttempts,
		tracer:      otel.Tracer("github.com/evalarena/evalarena-go-api/pkg/ai/judge"),
		logger:      logger.With().Str("component", "judge").Logger(),
	}
}

// Judge renders the evaluation prompt, requests a structured JSON verdict
// and parses it. Any failure returns {false, "Error during evaluation."}.
func (j *Judge) Judge(parent context.Context, question, referenceAnswer, candidateAnswer string) Verdict {
	ctx, span := j.tracer.Start(parent, "judge.evaluate", trace.WithAttributes(
		attribute.String("model", j.model),
	))
	defer span.End()

	var prompt bytes.Buffer
	if err := judgePromptTmpl.Execute(&prompt, judgePromptData{
		Question:        question,
		ReferenceAnswer: referenceAnswer,
		ModelResponse:   candidateAnswer,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Verdict{IsCorrect: false, Reasoning: judgeFallbackReasoning}
	}

	request := openai.ChatCompletionRequest{
		Model:       j.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt.String()},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	var lastErr error
	for attempt := 0; attempt < j.maxAttempts; attempt++ {
		start := time.Now()
		resp, err := j.client.CreateChatCompletion(ctx, request)
		routerCallDuration.WithLabelValues("judge", j.model).Observe(time.Since(start).Seconds())
		if err != nil {
			routerCallFailures.WithLabelValues("judge", j.model).Inc()
			lastErr = err
			continue
		}

		verdict, err := parseVerdict(resp)
		if err != nil {
			routerCallFailures.WithLabelValues("judge", j.model).Inc()
			lastErr = err
			continue
		}

		return verdict
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	j.logger.Warn().Err(lastErr).Str("model", j.model).Msg("judge call failed")

	return Verdict{IsCorrect: false, Reasoning: judgeFallbackReasoning}
}

func parseVerdict(resp openai.ChatCompletionResponse) (Verdict, error) {
	if len(resp.Choices) == 0 {
		return Verdict{}, errNoChoices
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)

	var raw any
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return Verdict{}, err
	}
	if err := verdictSchema.Validate(raw); err != nil {
		return Verdict{}, err
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(content), &verdict); err != nil {
		return Verdict{}, err
	}

	return verdict, nil
}
