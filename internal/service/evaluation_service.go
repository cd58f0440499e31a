package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/evalarena/evalarena-go-api/internal/dto"
	"github.com/evalarena/evalarena-go-api/internal/models"
	"github.com/evalarena/evalarena-go-api/internal/observability"
	"github.com/evalarena/evalarena-go-api/internal/repository"
	"github.com/evalarena/evalarena-go-api/internal/utils"
	"github.com/evalarena/evalarena-go-api/pkg/ai"
)

// ErrEvaluationSetNotFound indicates the requested set exists in neither store.
var ErrEvaluationSetNotFound = errors.New("evaluation set not found")

const maxSetNameLength = 120

const defaultSetName = "Evaluation Set"

// Responder collects one model answer per call, folding failures into the
// returned text.
type Responder interface {
	GetAnswer(ctx context.Context, shortID, question, systemMessage string) string
}

// Judge scores a candidate answer against a reference answer.
type Judge interface {
	Judge(ctx context.Context, question, referenceAnswer, candidateAnswer string) ai.Verdict
}

// EvaluationService drives batch runs and record retrieval across the
// transient and persistent stores.
type EvaluationService interface {
	CreateAndRun(ctx context.Context, req dto.EvaluateSetRequest, owner *string) (dto.EvaluationSetResponse, error)
	Get(ctx context.Context, id string, debug bool) (models.EvaluationSet, error)
	GetShared(ctx context.Context, id string) (models.EvaluationSet, error)
	ListUserSets(ctx context.Context, owner string, page, pageSize int) (dto.UserSetsResponse, error)
}

// EvaluationServiceOptions groups the optional collaborators.
type EvaluationServiceOptions struct {
	Cache        *redis.Client
	CacheTTL     time.Duration
	Events       *nats.Conn
	EventSubject string
}

type evaluationService struct {
	transient    *repository.TransientStore
	repo         repository.EvaluationSetRepository
	responder    Responder
	judge        Judge
	cache        *redis.Client
	cacheTTL     time.Duration
	events       *nats.Conn
	eventSubject string
	validator    *validator.Validate
	sanitizer    *bluemonday.Policy
	logger       zerolog.Logger
	tracer       trace.Tracer
	now          func() time.Time
}

// NewEvaluationService wires the orchestrator with both stores and the
// model-side collaborators. Cache and event collaborators may be nil.
func NewEvaluationService(
	transient *repository.TransientStore,
	repo repository.EvaluationSetRepository,
	responder Responder,
	judge Judge,
	validate *validator.Validate,
	logger zerolog.Logger,
	opts EvaluationServiceOptions,
) EvaluationService {
	cacheTTL := opts.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	return &evaluationService{
		transient:    transient,
		repo:         repo,
		responder:    responder,
		judge:        judge,
		cache:        opts.Cache,
		cacheTTL:     cacheTTL,
		events:       opts.Events,
		eventSubject: opts.EventSubject,
		validator:    validate,
		sanitizer:    bluemonday.StrictPolicy(),
		logger:       logger.With().Str("component", "evaluation_service").Logger(),
		tracer:       otel.Tracer("github.com/evalarena/evalarena-go-api/internal/service/evaluation"),
		now:          time.Now,
	}
}

func (s *evaluationService) CreateAndRun(ctx context.Context, req dto.EvaluateSetRequest, owner *string) (dto.EvaluationSetResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.EvaluationSetResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "evaluation.run_batch", trace.WithAttributes(
		attribute.Int("questions", len(req.Questions)),
		attribute.Int("models", len(req.Models)),
	))
	defer span.End()

	set := s.resolveSet(req, owner)

	for _, input := range req.Questions {
		question := models.Question{
			Question:        input.Question,
			ReferenceAnswer: input.ReferenceAnswer,
			Results:         make([]models.ModelResult, 0, len(req.Models)),
			Timestamp:       s.now(),
		}

		for _, modelID := range req.Models {
			question.Results = append(question.Results, s.collectResult(ctx, modelID, input, req.SystemMessage, set.EvaluateAutomatically))
		}

		updated, ok := s.transient.AppendQuestion(set.ID, question)
		if !ok {
			// The store only loses records on process restart; mid-run
			// this means the id was never created.
			s.logger.Error().Str("set_id", set.ID).Msg("transient record vanished mid-batch")
			return dto.EvaluationSetResponse{}, ErrEvaluationSetNotFound
		}
		set = updated
	}

	persisted := s.syncToPersistent(ctx, set.ID)

	final, ok := s.transient.Get(set.ID)
	if !ok {
		final = set
	}

	s.publishCompleted(final)

	s.logger.Info().
		Str("set_id", final.ID).
		Int("questions", len(final.Questions)).
		Bool("persisted", persisted).
		Msg("batch completed")

	return dto.EvaluationSetResponse{EvaluationSet: final, Persisted: persisted}, nil
}

// resolveSet reuses an existing transient record when the client supplied
// its identifier, otherwise creates a fresh one.
func (s *evaluationService) resolveSet(req dto.EvaluateSetRequest, owner *string) models.EvaluationSet {
	if req.SetID != "" {
		if existing, ok := s.transient.Get(req.SetID); ok {
			return existing
		}
		s.logger.Warn().Str("set_id", req.SetID).Msg("supplied set id unknown, creating a new record")
	}

	selected := make(map[string]bool, len(req.Models))
	for _, id := range req.Models {
		selected[id] = true
	}

	return s.transient.Create(models.EvaluationSet{
		Name:                  s.sanitizeName(req.DisplayName()),
		Owner:                 owner,
		Models:                selected,
		SystemMessage:         req.SystemMessage,
		EvaluateAutomatically: req.AutoEvaluate(),
	})
}

// collectResult runs the responder and, when enabled, the judge for one
// (question, model) pair. A failed responder call still yields a result
// whose response carries the error text, judged like any other answer.
func (s *evaluationService) collectResult(ctx context.Context, modelID string, input dto.QuestionInput, systemMessage string, autoEvaluate bool) models.ModelResult {
	responseStart := s.now()
	answer := s.responder.GetAnswer(ctx, modelID, input.Question, systemMessage)
	responseTime := s.now().Sub(responseStart).Milliseconds()

	var evaluation models.Evaluation
	var evaluationTime int64
	if autoEvaluate {
		judgeStart := s.now()
		verdict := s.judge.Judge(ctx, input.Question, input.ReferenceAnswer, answer)
		evaluationTime = s.now().Sub(judgeStart).Milliseconds()
		evaluation = models.AutomaticEvaluation(verdict.IsCorrect, verdict.Reasoning, s.now())
	} else {
		evaluation = models.PendingEvaluation()
	}

	return models.ModelResult{
		Model:      ai.ResolveDisplayName(modelID),
		Response:   answer,
		Evaluation: evaluation,
		Timings: models.Timings{
			ResponseTime:   responseTime,
			EvaluationTime: evaluationTime,
			TotalTime:      responseTime + evaluationTime,
		},
	}
}

// syncToPersistent mirrors the transient record into the row store,
// inserting on first sync and updating through the cached remote id
// afterwards. Failures are logged and swallowed; the caller learns the
// outcome through the returned flag.
func (s *evaluationService) syncToPersistent(ctx context.Context, id string) bool {
	set, ok := s.transient.Get(id)
	if !ok {
		return false
	}

	if set.SyncState == models.SyncStateSynced && set.RemoteID != "" {
		if err := s.repo.Update(ctx, set.RemoteID, set); err != nil {
			observability.SetsPersisted().WithLabelValues("update", "failure").Inc()
			s.logger.Warn().Err(err).Str("set_id", id).Str("remote_id", set.RemoteID).Msg("persistent update failed")
			return false
		}
		observability.SetsPersisted().WithLabelValues("update", "success").Inc()
		return true
	}

	remoteID, err := s.repo.Save(ctx, set)
	if err != nil {
		observability.SetsPersisted().WithLabelValues("insert", "failure").Inc()
		s.logger.Warn().Err(err).Str("set_id", id).Msg("persistent insert failed")
		return false
	}
	observability.SetsPersisted().WithLabelValues("insert", "success").Inc()
	s.transient.SetRemoteID(id, remoteID)
	return true
}

func (s *evaluationService) publishCompleted(set models.EvaluationSet) {
	if s.events == nil || s.eventSubject == "" {
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"setId":     set.ID,
		"remoteId":  set.RemoteID,
		"questions": len(set.Questions),
		"models":    set.SelectedModels(),
	})
	if err != nil {
		return
	}
	if err := s.events.Publish(s.eventSubject, payload); err != nil {
		s.logger.Warn().Err(err).Str("subject", s.eventSubject).Msg("completion event publish failed")
	}
}

func (s *evaluationService) Get(ctx context.Context, id string, debug bool) (models.EvaluationSet, error) {
	if set, ok := s.transient.Get(id); ok {
		if debug && set.RemoteID != "" {
			s.crossCheck(ctx, set)
		}
		return set, nil
	}

	if utils.IsUUID(id) {
		set, err := s.repo.FetchByID(ctx, id)
		if err == nil {
			return set, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.EvaluationSet{}, err
		}
	}

	return models.EvaluationSet{}, ErrEvaluationSetNotFound
}

// crossCheck compares the transient copy against its persistent row; a
// divergence is only logged, the transient copy stays authoritative.
func (s *evaluationService) crossCheck(ctx context.Context, set models.EvaluationSet) {
	remote, err := s.repo.FetchByID(ctx, set.RemoteID)
	if err != nil {
		s.logger.Warn().Err(err).Str("remote_id", set.RemoteID).Msg("debug cross-check fetch failed")
		return
	}
	if len(remote.Questions) != len(set.Questions) {
		s.logger.Warn().
			Str("set_id", set.ID).
			Int("transient_questions", len(set.Questions)).
			Int("persistent_questions", len(remote.Questions)).
			Msg("stores diverged")
	}
}

func (s *evaluationService) GetShared(ctx context.Context, id string) (models.EvaluationSet, error) {
	if set, ok := s.cachedShare(ctx, id); ok {
		return set, nil
	}

	set, err := s.resolveShared(ctx, id)
	if err != nil {
		return models.EvaluationSet{}, err
	}

	s.cacheShare(ctx, id, set)
	return set, nil
}

func (s *evaluationService) resolveShared(ctx context.Context, id string) (models.EvaluationSet, error) {
	if utils.IsUUID(id) {
		set, err := s.repo.FetchByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.EvaluationSet{}, ErrEvaluationSetNotFound
			}
			return models.EvaluationSet{}, err
		}
		return set, nil
	}

	set, ok := s.transient.Get(id)
	if !ok {
		return models.EvaluationSet{}, ErrEvaluationSetNotFound
	}

	// Prefer the durable copy when the transient record already synced.
	if set.RemoteID != "" {
		if remote, err := s.repo.FetchByID(ctx, set.RemoteID); err == nil {
			return remote, nil
		}
	}

	return set, nil
}

func shareCacheKey(id string) string {
	return "arena:share:" + id
}

func (s *evaluationService) cachedShare(ctx context.Context, id string) (models.EvaluationSet, bool) {
	if s.cache == nil {
		return models.EvaluationSet{}, false
	}

	raw, err := s.cache.Get(ctx, shareCacheKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Debug().Err(err).Msg("share cache read failed")
		}
		return models.EvaluationSet{}, false
	}

	var set models.EvaluationSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return models.EvaluationSet{}, false
	}
	return set, true
}

func (s *evaluationService) cacheShare(ctx context.Context, id string, set models.EvaluationSet) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(set)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, shareCacheKey(id), raw, s.cacheTTL).Err(); err != nil {
		s.logger.Debug().Err(err).Msg("share cache write failed")
	}
}

func (s *evaluationService) ListUserSets(ctx context.Context, owner string, page, pageSize int) (dto.UserSetsResponse, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	sets, total, err := s.repo.FetchPage(ctx, repository.EvaluationSetFilter{
		Owner:    owner,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return dto.UserSetsResponse{}, err
	}

	summaries := make([]dto.EvaluationSetSummary, 0, len(sets))
	for _, set := range sets {
		summaries = append(summaries, dto.NewEvaluationSetSummary(set))
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	return dto.UserSetsResponse{
		Data: summaries,
		Pagination: dto.PaginationMeta{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

func (s *evaluationService) sanitizeName(name string) string {
	name = s.sanitizer.Sanitize(name)
	if name == "" {
		name = defaultSetName
	}
	if len(name) > maxSetNameLength {
		name = name[:maxSetNameLength]
	}
	return name
}
