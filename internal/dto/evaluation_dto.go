package dto

import (
	"strings"
	"time"

	"github.com/evalarena/evalarena-go-api/internal/models"
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// QuestionInput is one (question, reference answer) pair in a batch
// submission. The 500-character cap is enforced here, before
// orchestration begins.
type QuestionInput struct {
	Question        string `json:"question" validate:"required,max=500"`
	ReferenceAnswer string `json:"referenceAnswer" validate:"required,max=500"`
}

// EvaluateSetRequest is the batch-submission payload.
type EvaluateSetRequest struct {
	Questions             []QuestionInput `json:"questions" validate:"required,min=1,dive"`
	Models                []string        `json:"models" validate:"required,min=1,dive,required"`
	SystemMessage         string          `json:"systemMessage" validate:"omitempty,max=2000"`
	SetID                 string          `json:"setId"`
	Name                  string          `json:"name"`
	SetName               string          `json:"setName"`
	EvaluateAutomatically *bool           `json:"evaluateAutomatically"`
}

// DisplayName returns the requested set name, accepting either field the
// client may send.
func (r EvaluateSetRequest) DisplayName() string {
	if name := strings.TrimSpace(r.Name); name != "" {
		return name
	}
	return strings.TrimSpace(r.SetName)
}

// AutoEvaluate reports whether results should be judged automatically;
// the default is true when the field is omitted.
func (r EvaluateSetRequest) AutoEvaluate() bool {
	if r.EvaluateAutomatically == nil {
		return true
	}
	return *r.EvaluateAutomatically
}

// EvaluationSetResponse is the full record returned after a batch run or
// fetch. Persisted reports whether the best-effort write to the
// persistent store succeeded.
type EvaluationSetResponse struct {
	models.EvaluationSet
	Persisted bool `json:"persisted"`
}

// ManualEvaluationRequest overrides one result's verdict.
type ManualEvaluationRequest struct {
	EvaluationID  string `json:"evaluationId"`
	QuestionIndex *int   `json:"questionIndex" validate:"required,min=0"`
	ModelName     string `json:"modelName" validate:"required"`
	IsCorrect     *bool  `json:"isCorrect" validate:"required"`
	Reasoning     string `json:"reasoning" validate:"omitempty,max=2000"`
}

// EvaluationSetSummary is the list-view projection of a set.
type EvaluationSetSummary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Models        []string  `json:"models"`
	QuestionCount int       `json:"questionCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// UserSetsResponse pages through the caller's persisted sets.
type UserSetsResponse struct {
	Data       []EvaluationSetSummary `json:"data"`
	Pagination PaginationMeta         `json:"pagination"`
}

// NewEvaluationSetSummary projects a set into its list form.
func NewEvaluationSetSummary(set models.EvaluationSet) EvaluationSetSummary {
	return EvaluationSetSummary{
		ID:            set.ID,
		Name:          set.Name,
		Models:        set.SelectedModels(),
		QuestionCount: set.QuestionCount(),
		CreatedAt:     set.CreatedAt,
		UpdatedAt:     set.UpdatedAt,
	}
}
