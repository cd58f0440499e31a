package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/evalarena/evalarena-go-api/internal/dto"
	"github.com/evalarena/evalarena-go-api/internal/models"
	"github.com/evalarena/evalarena-go-api/internal/observability"
	"github.com/evalarena/evalarena-go-api/internal/repository"
	"github.com/evalarena/evalarena-go-api/internal/utils"
)

// ErrForbidden indicates the caller does not own the targeted set.
var ErrForbidden = errors.New("evaluation set belongs to another user")

// ErrResultNotFound indicates the (question, model) coordinates do not
// address any result in the set.
var ErrResultNotFound = errors.New("model result not found")

const defaultManualReasoning = "Manually evaluated by user."

// ManualReviewService applies human verdicts to stored model results.
type ManualReviewService interface {
	ApplyVerdict(ctx context.Context, setID string, req dto.ManualEvaluationRequest, actor *string) (models.Evaluation, error)
}

type manualReviewService struct {
	transient *repository.TransientStore
	repo      repository.EvaluationSetRepository
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewManualReviewService builds the patch service over the same stores the
// orchestrator writes to.
func NewManualReviewService(
	transient *repository.TransientStore,
	repo repository.EvaluationSetRepository,
	validate *validator.Validate,
	logger zerolog.Logger,
) ManualReviewService {
	return &manualReviewService{
		transient: transient,
		repo:      repo,
		validator: validate,
		logger:    logger.With().Str("component", "manual_review_service").Logger(),
		tracer:    otel.Tracer("github.com/evalarena/evalarena-go-api/internal/service/manualreview"),
		now:       time.Now,
	}
}

// ApplyVerdict overwrites one result's evaluation with a human verdict and
// mirrors the change to both stores. Concurrent patches against the same
// result resolve last-writer-wins; the stores never interleave partial
// verdicts because each write replaces the evaluation wholesale.
func (s *manualReviewService) ApplyVerdict(ctx context.Context, setID string, req dto.ManualEvaluationRequest, actor *string) (models.Evaluation, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.Evaluation{}, err
	}

	ctx, span := s.tracer.Start(ctx, "evaluation.apply_verdict")
	defer span.End()

	set, fromPersistent, err := s.locate(ctx, setID)
	if err != nil {
		return models.Evaluation{}, err
	}

	if set.Owner != nil && (actor == nil || *actor != *set.Owner) {
		return models.Evaluation{}, ErrForbidden
	}

	idx := *req.QuestionIndex
	if idx < 0 || idx >= len(set.Questions) {
		return models.Evaluation{}, ErrResultNotFound
	}

	resultIdx := -1
	for i, result := range set.Questions[idx].Results {
		if result.Model == req.ModelName {
			resultIdx = i
			break
		}
	}
	if resultIdx == -1 {
		return models.Evaluation{}, ErrResultNotFound
	}

	reasoning := req.Reasoning
	if reasoning == "" {
		reasoning = defaultManualReasoning
	}

	evaluation := models.ManualEvaluation(*req.IsCorrect, reasoning, actor, s.now())
	set.Questions[idx].Results[resultIdx].Evaluation = evaluation
	set.UpdatedAt = s.now()

	// The transient store always receives the patched copy, even when the
	// record was loaded from a persistent row. Follow-up reads by transient
	// id then see the verdict immediately.
	s.transient.Put(set)

	s.reconcile(ctx, setID, set, fromPersistent)

	return evaluation, nil
}

// locate resolves the set by id shape: canonical UUIDs address persistent
// rows, everything else the transient store.
func (s *manualReviewService) locate(ctx context.Context, setID string) (models.EvaluationSet, bool, error) {
	if utils.IsUUID(setID) {
		set, err := s.repo.FetchByID(ctx, setID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.EvaluationSet{}, false, ErrEvaluationSetNotFound
			}
			return models.EvaluationSet{}, false, err
		}
		return set, true, nil
	}

	set, ok := s.transient.Get(setID)
	if !ok {
		return models.EvaluationSet{}, false, ErrEvaluationSetNotFound
	}
	return set, false, nil
}

// reconcile pushes the patched verdict back to the persistent store on a
// best-effort basis. Failures are logged and swallowed; the transient copy
// already holds the verdict.
func (s *manualReviewService) reconcile(ctx context.Context, setID string, set models.EvaluationSet, fromPersistent bool) {
	var err error
	operation := "update"

	switch {
	case fromPersistent:
		err = s.repo.Update(ctx, setID, set)
	case set.SyncState == models.SyncStateSynced && set.RemoteID != "":
		err = s.repo.Update(ctx, set.RemoteID, set)
	default:
		operation = "insert"
		var remoteID string
		remoteID, err = s.repo.Save(ctx, set)
		if err == nil {
			s.transient.SetRemoteID(set.ID, remoteID)
		}
	}

	if err != nil {
		observability.SetsPersisted().WithLabelValues(operation, "failure").Inc()
		s.logger.Warn().Err(err).Str("set_id", setID).Msg("verdict reconciliation failed")
		return
	}
	observability.SetsPersisted().WithLabelValues(operation, "success").Inc()
}
