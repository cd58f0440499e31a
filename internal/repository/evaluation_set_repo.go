package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/evalarena/evalarena-go-api/internal/models"
)

// EvaluationSetFilter describes pagination options for owner-scoped lists.
type EvaluationSetFilter struct {
	Owner    string
	Page     int
	PageSize int
}

// EvaluationSetRepository defines persistence operations for evaluation
// sets against the row store.
type EvaluationSetRepository interface {
	Save(ctx context.Context, set models.EvaluationSet) (string, error)
	Update(ctx context.Context, remoteID string, set models.EvaluationSet) error
	FetchByID(ctx context.Context, remoteID string) (models.EvaluationSet, error)
	FetchPage(ctx context.Context, filter EvaluationSetFilter) ([]models.EvaluationSet, int64, error)
}

type evaluationSetRepository struct {
	db *gorm.DB
}

// NewEvaluationSetRepository instantiates a GORM-backed repository.
func NewEvaluationSetRepository(db *gorm.DB) EvaluationSetRepository {
	return &evaluationSetRepository{db: db}
}

// Save always inserts a fresh row and returns its generated identifier.
// Remembering that identifier to avoid duplicate inserts is the caller's
// job.
func (r *evaluationSetRepository) Save(ctx context.Context, set models.EvaluationSet) (string, error) {
	row, err := toRow(set)
	if err != nil {
		return "", err
	}
	row.ID = uuid.NewString()

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", err
	}

	return row.ID, nil
}

// Update rewrites the questions document and bumps updated_at on an
// existing row.
func (r *evaluationSetRepository) Update(ctx context.Context, remoteID string, set models.EvaluationSet) error {
	questions, err := marshalQuestions(set.Questions)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&models.EvaluationSetRow{}).
		Where("id = ?", remoteID).
		Updates(map[string]interface{}{"questions": questions})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *evaluationSetRepository) FetchByID(ctx context.Context, remoteID string) (models.EvaluationSet, error) {
	var row models.EvaluationSetRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", remoteID).Error; err != nil {
		return models.EvaluationSet{}, err
	}

	return fromRow(row)
}

func (r *evaluationSetRepository) FetchPage(ctx context.Context, filter EvaluationSetFilter) ([]models.EvaluationSet, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.EvaluationSetRow{}).
		Where("owner = ?", filter.Owner)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	var rows []models.EvaluationSetRow
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	sets := make([]models.EvaluationSet, 0, len(rows))
	for _, row := range rows {
		set, err := fromRow(row)
		if err != nil {
			return nil, 0, err
		}
		sets = append(sets, set)
	}

	return sets, total, nil
}

func marshalQuestions(questions []models.Question) (datatypes.JSON, error) {
	if questions == nil {
		questions = []models.Question{}
	}
	raw, err := json.Marshal(questions)
	if err != nil {
		return nil, fmt.Errorf("marshal questions: %w", err)
	}
	return datatypes.JSON(raw), nil
}

func toRow(set models.EvaluationSet) (models.EvaluationSetRow, error) {
	questions, err := marshalQuestions(set.Questions)
	if err != nil {
		return models.EvaluationSetRow{}, err
	}

	modelsMap := datatypes.JSONMap{}
	for id, enabled := range set.Models {
		modelsMap[id] = enabled
	}

	return models.EvaluationSetRow{
		Name:                  set.Name,
		Owner:                 set.Owner,
		Models:                modelsMap,
		SystemMessage:         set.SystemMessage,
		EvaluateAutomatically: set.EvaluateAutomatically,
		Questions:             questions,
		CreatedAt:             set.CreatedAt,
	}, nil
}

func fromRow(row models.EvaluationSetRow) (models.EvaluationSet, error) {
	var questions []models.Question
	if len(row.Questions) > 0 {
		if err := json.Unmarshal(row.Questions, &questions); err != nil {
			return models.EvaluationSet{}, fmt.Errorf("unmarshal questions: %w", err)
		}
	}
	if questions == nil {
		questions = []models.Question{}
	}

	selected := make(map[string]bool, len(row.Models))
	for id, value := range row.Models {
		if enabled, ok := value.(bool); ok {
			selected[id] = enabled
		}
	}

	return models.EvaluationSet{
		ID:                    row.ID,
		Name:                  row.Name,
		Owner:                 row.Owner,
		Models:                selected,
		SystemMessage:         row.SystemMessage,
		EvaluateAutomatically: row.EvaluateAutomatically,
		Questions:             questions,
		SyncState:             models.SyncStateSynced,
		RemoteID:              row.ID,
		CreatedAt:             row.CreatedAt,
		UpdatedAt:             row.UpdatedAt,
	}, nil
}
