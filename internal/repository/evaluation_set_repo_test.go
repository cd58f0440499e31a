package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/evalarena/evalarena-go-api/internal/models"
	"github.com/evalarena/evalarena-go-api/internal/utils"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_pragma=foreign_keys(1)&mode=memory"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.EvaluationSetRow{}))
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func sampleSet(owner *string) models.EvaluationSet {
	return models.EvaluationSet{
		Name:                  "Sample batch",
		Owner:                 owner,
		Models:                map[string]bool{"gpt41": true, "claude3": true},
		SystemMessage:         "Be brief.",
		EvaluateAutomatically: true,
		Questions: []models.Question{
			{
				Question:        "What is 2+2?",
				ReferenceAnswer: "4",
				Results: []models.ModelResult{
					{Model: "GPT-4.1", Response: "4", Evaluation: models.PendingEvaluation()},
				},
			},
		},
	}
}

func TestEvaluationSetRepoSaveAndFetch(t *testing.T) {
	repo := NewEvaluationSetRepository(newTestDB(t))
	ctx := context.Background()

	remoteID, err := repo.Save(ctx, sampleSet(nil))
	require.NoError(t, err)
	require.True(t, utils.IsUUID(remoteID))

	fetched, err := repo.FetchByID(ctx, remoteID)
	require.NoError(t, err)
	require.Equal(t, "Sample batch", fetched.Name)
	require.Equal(t, remoteID, fetched.RemoteID)
	require.Equal(t, models.SyncStateSynced, fetched.SyncState)
	require.True(t, fetched.Models["gpt41"])
	require.Len(t, fetched.Questions, 1)
	require.Equal(t, "GPT-4.1", fetched.Questions[0].Results[0].Model)
	require.Equal(t, models.EvaluationTypePendingManual, fetched.Questions[0].Results[0].Evaluation.EvaluationType)
}

func TestEvaluationSetRepoSaveGeneratesDistinctIDs(t *testing.T) {
	repo := NewEvaluationSetRepository(newTestDB(t))
	ctx := context.Background()

	first, err := repo.Save(ctx, sampleSet(nil))
	require.NoError(t, err)
	second, err := repo.Save(ctx, sampleSet(nil))
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestEvaluationSetRepoFetchMissing(t *testing.T) {
	repo := NewEvaluationSetRepository(newTestDB(t))

	_, err := repo.FetchByID(context.Background(), "123e4567-e89b-12d3-a456-426614174000")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestEvaluationSetRepoUpdateQuestions(t *testing.T) {
	repo := NewEvaluationSetRepository(newTestDB(t))
	ctx := context.Background()

	set := sampleSet(nil)
	remoteID, err := repo.Save(ctx, set)
	require.NoError(t, err)

	isCorrect := true
	reasoning := "matches reference"
	set.Questions[0].Results[0].Evaluation = models.ManualEvaluation(isCorrect, reasoning, nil, set.CreatedAt)

	require.NoError(t, repo.Update(ctx, remoteID, set))

	fetched, err := repo.FetchByID(ctx, remoteID)
	require.NoError(t, err)
	evaluation := fetched.Questions[0].Results[0].Evaluation
	require.Equal(t, models.EvaluationTypeManual, evaluation.EvaluationType)
	require.NotNil(t, evaluation.IsCorrect)
	require.True(t, *evaluation.IsCorrect)
}

func TestEvaluationSetRepoUpdateMissingRow(t *testing.T) {
	repo := NewEvaluationSetRepository(newTestDB(t))

	err := repo.Update(context.Background(), "123e4567-e89b-12d3-a456-426614174000", sampleSet(nil))
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestEvaluationSetRepoFetchPageFiltersByOwner(t *testing.T) {
	repo := NewEvaluationSetRepository(newTestDB(t))
	ctx := context.Background()

	alice := "user-alice"
	bob := "user-bob"
	for i := 0; i < 3; i++ {
		_, err := repo.Save(ctx, sampleSet(&alice))
		require.NoError(t, err)
	}
	_, err := repo.Save(ctx, sampleSet(&bob))
	require.NoError(t, err)

	sets, total, err := repo.FetchPage(ctx, EvaluationSetFilter{Owner: alice, Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, sets, 2)
	for _, set := range sets {
		require.NotNil(t, set.Owner)
		require.Equal(t, alice, *set.Owner)
	}

	sets, total, err = repo.FetchPage(ctx, EvaluationSetFilter{Owner: alice, Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, sets, 1)
}
