package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerlink/jobrec/internal/config"
	"github.com/careerlink/jobrec/pkg/models"
)

// stubEncoder returns canned vectors keyed by a substring of the input text
// and counts how many texts were actually encoded.
type stubEncoder struct {
	vectors map[string][]float64
	encoded int
}

func (s *stubEncoder) Encode(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		s.encoded++
		out[i] = []float64{0.1, 0.1}
		for key, vec := range s.vectors {
			if strings.Contains(text, key) {
				out[i] = vec
				break
			}
		}
	}
	return out, nil
}

func (s *stubEncoder) Dimensions() int { return 2 }

func semanticTestConfig() *config.Config {
	return &config.Config{
		Recommendation: config.RecommendationConfig{ModelTTL: time.Hour},
		Encoder:        config.EncoderConfig{BatchSize: 32},
	}
}

func expectStoredJobEmbeddings(mockDB pgxmock.PgxPoolIface, stored []StoredEmbedding) {
	rows := pgxmock.NewRows([]string{"entity_id", "content_hash", "vector"})
	for _, e := range stored {
		rows.AddRow(e.EntityID, e.ContentHash, e.Vector)
	}
	mockDB.ExpectQuery("FROM embeddings WHERE entity_kind = 'job'").WillReturnRows(rows)
}

func TestSemanticIndex_Fit(t *testing.T) {
	encoder := &stubEncoder{vectors: map[string][]float64{
		"Golang": {1, 0},
		"Java":   {0.9, 0.44},
		"Chef":   {0, 1},
	}}

	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)

	// First fit: nothing stored, every job gets encoded and persisted.
	expectActiveJobs(mockDB, contentTestCatalog)
	expectStoredJobEmbeddings(mockDB, nil)
	for range contentTestCatalog {
		mockDB.ExpectQuery("INSERT INTO embeddings").
			WithArgs("job", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{}))
	}

	idx := NewSemanticIndex(NewStore(mockDB, testLogger()), encoder, semanticTestConfig(), testLogger())
	require.NoError(t, idx.Fit(context.Background(), false))
	assert.Equal(t, len(contentTestCatalog), encoder.encoded)

	snap := idx.currentSnapshot()
	require.NotNil(t, snap)
	assert.Len(t, snap.jobIDs, len(contentTestCatalog))

	// Second forced fit: stored hashes match, so nothing is re-encoded.
	expectActiveJobs(mockDB, contentTestCatalog)
	var stored []StoredEmbedding
	for i, j := range contentTestCatalog {
		job := j
		stored = append(stored, StoredEmbedding{
			EntityID:    job.ID,
			ContentHash: contentHash(jobDocumentText(&job)),
			Vector:      snap.vectors[i],
		})
	}
	expectStoredJobEmbeddings(mockDB, stored)

	require.NoError(t, idx.Fit(context.Background(), true))
	assert.Equal(t, len(contentTestCatalog), encoder.encoded)
}

func TestSemanticIndex_ScoreJob(t *testing.T) {
	idx := &SemanticIndex{config: semanticTestConfig(), logger: testLogger()}
	idx.snapshot = &semanticSnapshot{
		jobIDs:  []string{"job-go", "job-java", "job-chef"},
		vectors: [][]float64{{1, 0}, {0.9, 0.44}, {0, 1}},
		builtAt: time.Now(),
	}

	t.Run("ranks by cosine similarity, seed excluded", func(t *testing.T) {
		scored, err := idx.ScoreJob(context.Background(), "job-go", 10)
		require.NoError(t, err)
		require.Len(t, scored, 1)
		assert.Equal(t, "job-java", scored[0].JobID)
		assert.Equal(t, "semantic", scored[0].Source)
	})

	t.Run("seed not indexed is empty, not an error", func(t *testing.T) {
		scored, err := idx.ScoreJob(context.Background(), "job-missing", 10)
		require.NoError(t, err)
		assert.Nil(t, scored)
	})

	t.Run("unfitted index surfaces ErrModelNotFitted", func(t *testing.T) {
		empty := &SemanticIndex{config: semanticTestConfig(), logger: testLogger()}
		_, err := empty.ScoreJob(context.Background(), "job-go", 10)
		assert.ErrorIs(t, err, ErrModelNotFitted)
	})
}

func TestSemanticIndex_ScoreProfile(t *testing.T) {
	t.Run("empty profile yields no signal", func(t *testing.T) {
		idx := &SemanticIndex{config: semanticTestConfig(), logger: testLogger()}
		scored, err := idx.ScoreProfile(context.Background(), &models.UserProfile{UserID: "u1"}, 10)
		require.NoError(t, err)
		assert.Nil(t, scored)
	})

	t.Run("encodes and persists a fresh profile embedding", func(t *testing.T) {
		mockDB, err := pgxmock.NewPool()
		require.NoError(t, err)
		mockDB.ExpectQuery("FROM embeddings WHERE entity_kind = 'profile'").
			WithArgs("u1").
			WillReturnError(pgx.ErrNoRows)
		mockDB.ExpectQuery("INSERT INTO embeddings").
			WithArgs("profile", "u1", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{}))

		encoder := &stubEncoder{vectors: map[string][]float64{"golang": {1, 0}}}
		idx := NewSemanticIndex(NewStore(mockDB, testLogger()), encoder, semanticTestConfig(), testLogger())
		idx.snapshot = &semanticSnapshot{
			jobIDs:  []string{"job-go", "job-chef"},
			vectors: [][]float64{{1, 0}, {0, 1}},
			builtAt: time.Now(),
		}

		profile := &models.UserProfile{UserID: "u1", Skills: []string{"golang"}}
		scored, err := idx.ScoreProfile(context.Background(), profile, 10)
		require.NoError(t, err)
		require.Len(t, scored, 1)
		assert.Equal(t, "job-go", scored[0].JobID)
		assert.Equal(t, 1, encoder.encoded)
	})
}
