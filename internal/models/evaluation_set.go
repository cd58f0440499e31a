package models

import "time"

// SyncState tracks whether an evaluation set has been mirrored to the
// persistent store yet.
type SyncState string

const (
	// SyncStateUnsynced means the set only exists in process memory.
	SyncStateUnsynced SyncState = "unsynced"
	// SyncStateSynced means the set has a row in the persistent store,
	// addressable through RemoteID.
	SyncStateSynced SyncState = "synced"
)

// Evaluation type markers stored on each model result.
const (
	EvaluationTypeAutomatic     = "automatic"
	EvaluationTypePendingManual = "pending_manual"
	EvaluationTypeManual        = "manual"
)

// EvaluationSet is one submitted batch of questions together with every
// model answer and verdict collected for it.
type EvaluationSet struct {
	ID                    string          `json:"id"`
	Name                  string          `json:"name"`
	Owner                 *string         `json:"owner"`
	Models                map[string]bool `json:"models"`
	SystemMessage         string          `json:"systemMessage,omitempty"`
	EvaluateAutomatically bool            `json:"evaluateAutomatically"`
	Questions             []Question      `json:"questions"`
	SyncState             SyncState       `json:"-"`
	RemoteID              string          `json:"remoteId,omitempty"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

// Question holds one (question, reference answer) pair and the results
// produced for it. Result order follows the model selection order and is
// the addressing scheme used by manual review.
type Question struct {
	Question        string        `json:"question"`
	ReferenceAnswer string        `json:"referenceAnswer"`
	Results         []ModelResult `json:"results"`
	Timestamp       time.Time     `json:"timestamp"`
}

// ModelResult is a single model's answer plus its verdict and timings.
// Model carries the display name, not the short identifier.
type ModelResult struct {
	Model      string     `json:"model"`
	Response   string     `json:"response"`
	Evaluation Evaluation `json:"evaluation"`
	Timings    Timings    `json:"timings"`
}

// Evaluation is the verdict attached to a model result. IsCorrect and
// Reasoning are nil while the result awaits manual review.
type Evaluation struct {
	IsCorrect      *bool      `json:"is_correct"`
	Reasoning      *string    `json:"reasoning"`
	EvaluationType string     `json:"evaluation_type"`
	EvaluatedBy    *string    `json:"evaluated_by,omitempty"`
	EvaluatedAt    *time.Time `json:"evaluated_at"`
}

// Timings captures per-result latency in milliseconds. EvaluationTime is
// zero when automatic evaluation was skipped.
type Timings struct {
	ResponseTime   int64 `json:"responseTime"`
	EvaluationTime int64 `json:"evaluationTime"`
	TotalTime      int64 `json:"totalTime"`
}

// PendingEvaluation returns the marker stored when a batch runs with
// automatic evaluation disabled.
func PendingEvaluation() Evaluation {
	return Evaluation{EvaluationType: EvaluationTypePendingManual}
}

// AutomaticEvaluation builds a judge-produced verdict.
func AutomaticEvaluation(isCorrect bool, reasoning string, at time.Time) Evaluation {
	return Evaluation{
		IsCorrect:      &isCorrect,
		Reasoning:      &reasoning,
		EvaluationType: EvaluationTypeAutomatic,
		EvaluatedAt:    &at,
	}
}

// ManualEvaluation builds a human-supplied verdict. evaluatedBy may be nil
// for anonymous reviewers.
func ManualEvaluation(isCorrect bool, reasoning string, evaluatedBy *string, at time.Time) Evaluation {
	return Evaluation{
		IsCorrect:      &isCorrect,
		Reasoning:      &reasoning,
		EvaluationType: EvaluationTypeManual,
		EvaluatedBy:    evaluatedBy,
		EvaluatedAt:    &at,
	}
}

// Clone returns a deep copy so callers can mutate results without
// aliasing store-held state.
func (s EvaluationSet) Clone() EvaluationSet {
	out := s
	if s.Owner != nil {
		owner := *s.Owner
		out.Owner = &owner
	}
	if s.Models != nil {
		out.Models = make(map[string]bool, len(s.Models))
		for k, v := range s.Models {
			out.Models[k] = v
		}
	}
	out.Questions = make([]Question, len(s.Questions))
	for i, q := range s.Questions {
		cq := q
		cq.Results = make([]ModelResult, len(q.Results))
		copy(cq.Results, q.Results)
		out.Questions[i] = cq
	}
	return out
}

// QuestionCount reports how many questions the set holds.
func (s EvaluationSet) QuestionCount() int {
	return len(s.Questions)
}

// SelectedModels returns the short identifiers enabled for this set.
func (s EvaluationSet) SelectedModels() []string {
	out := make([]string, 0, len(s.Models))
	for id, enabled := range s.Models {
		if enabled {
			out = append(out, id)
		}
	}
	return out
}
