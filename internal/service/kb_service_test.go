package service

import (
	"context"
	"testing"

	"cogsearch-go/internal/model"
	"cogsearch-go/pkg/embedding"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKb(backend *fakeBackend, emb *fakeEmbedder) KbService {
	schema := NewSchemaService(backend, 3)
	ingestion := NewIngestionService(backend, 1000)
	return NewKbService(backend, schema, ingestion, emb, KbSettings{IndexName: "aoaikb", K: 3, MinScore: 0.95})
}

func TestKbService_LookupEmptyIndex(t *testing.T) {
	backend := &fakeBackend{}
	svc := newKb(backend, &fakeEmbedder{})

	res := svc.Lookup(context.Background(), KbLookupParams{
		Vector:      []float32{0.1, 0.2, 0.3},
		VectorField: "vectorQuestion",
		Kind:        model.VectorSemantic,
		IndexName:   "docs-vs",
		KbIndexName: "aoaikb",
	})
	require.Equal(t, model.OutcomeEmpty, res.Outcome)
	assert.NoError(t, res.Err)
	assert.Empty(t, res.Hits())

	require.Len(t, backend.created, 1)
	assert.Equal(t, "aoaikb", backend.created[0].Name)

	require.Len(t, backend.searches, 1)
	req := backend.searches[0].req
	assert.Equal(t, "aoaikb", backend.searches[0].index)
	assert.Empty(t, req.Text)
	assert.Equal(t, "indexType eq 'cogsearchvs' and indexName eq 'docs-vs'", req.Filter.String())
	assert.Equal(t, "vectorQuestion", req.Vector.Field)
	assert.Equal(t, 3, req.Vector.K)
	assert.Equal(t, model.SemanticConfigPrimary, req.Semantic.ConfigName)
	assert.True(t, req.IncludeTotalCount)
}

func TestKbService_LookupFailure(t *testing.T) {
	backend := &fakeBackend{indexes: []string{"aoaikb"}, search: func(int, string, model.SearchRequest) (*model.SearchResults, error) {
		return nil, errRemote
	}}
	svc := newKb(backend, &fakeEmbedder{})

	res := svc.Lookup(context.Background(), KbLookupParams{Vector: []float32{1}, Kind: model.PlainText, IndexName: "docs"})
	assert.Equal(t, model.OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, errRemote)
	assert.Empty(t, backend.created)
}

func TestKbService_Remember(t *testing.T) {
	backend := &fakeBackend{}
	emb := &fakeEmbedder{vector: []float32{1, 0, 0}}
	svc := newKb(backend, emb)

	rec, err := svc.Remember(context.Background(), RememberParams{
		Model: embedding.AzureOpenAI, Question: "what is x", Answer: "x is y",
		Kind: model.VectorSemantic, IndexName: "docs-vs",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "cogsearchvs", rec.IndexType)
	assert.Equal(t, []float32{1, 0, 0}, rec.VectorQuestion)
	assert.Equal(t, []string{"what is x"}, emb.texts)

	require.Len(t, backend.uploads, 1)
	assert.Equal(t, "aoaikb", backend.uploads[0].index)
	assert.Equal(t, model.UploadPlain, backend.uploads[0].mode)
	assert.Equal(t, rec, backend.uploads[0].records[0])
}

func TestKbService_RememberRejectedRecord(t *testing.T) {
	backend := &rejectAll{&fakeBackend{}}
	schema := NewSchemaService(backend, 3)
	svc := NewKbService(backend, schema, NewIngestionService(backend, 1000), &fakeEmbedder{}, KbSettings{IndexName: "aoaikb"})

	_, err := svc.Remember(context.Background(), RememberParams{Question: "q", Answer: "a", Kind: model.PlainText, IndexName: "docs"})
	assert.Error(t, err)
}

func TestKbService_RememberRequiresQuestionAndAnswer(t *testing.T) {
	svc := newKb(&fakeBackend{}, &fakeEmbedder{})

	_, err := svc.Remember(context.Background(), RememberParams{Question: "q"})
	assert.Error(t, err)
}

func TestKbService_RecallHit(t *testing.T) {
	backend := &fakeBackend{search: func(int, string, model.SearchRequest) (*model.SearchResults, error) {
		return &model.SearchResults{Hits: []model.Hit{{
			ID: "k1", Score: 0.97,
			Fields: map[string]interface{}{"question": "what is x", "answer": "x is y"},
		}}}, nil
	}}
	svc := newKb(backend, &fakeEmbedder{})

	r, err := svc.Recall(context.Background(), RecallParams{Question: "what's x", Kind: model.VectorSemantic, IndexName: "docs-vs"})
	require.NoError(t, err)
	assert.True(t, r.Hit)
	assert.Equal(t, "x is y", r.Answer)
	assert.Equal(t, "what is x", r.Question)
	assert.InDelta(t, 0.97, r.Score, 1e-9)
}

func TestKbService_RecallBelowThresholdIsMiss(t *testing.T) {
	backend := &fakeBackend{search: func(int, string, model.SearchRequest) (*model.SearchResults, error) {
		return oneHit("k1", 0.80), nil
	}}
	svc := newKb(backend, &fakeEmbedder{})

	r, err := svc.Recall(context.Background(), RecallParams{Question: "q", Kind: model.PlainText, IndexName: "docs"})
	require.NoError(t, err)
	assert.False(t, r.Hit)
	assert.Empty(t, r.Answer)
	assert.Equal(t, model.OutcomeMatched, r.Result.Outcome)
}

func TestKbService_RecallEmbeddingError(t *testing.T) {
	backend := &fakeBackend{}
	svc := newKb(backend, &fakeEmbedder{err: errRemote})

	_, err := svc.Recall(context.Background(), RecallParams{Question: "q", Kind: model.PlainText, IndexName: "docs"})
	assert.ErrorIs(t, err, errRemote)
	assert.Empty(t, backend.searches)
}

// rejectAll 让每条写入都失败。
type rejectAll struct{ *fakeBackend }

func (r *rejectAll) UploadDocuments(_ context.Context, _ string, _ model.UploadMode, records []model.Record) ([]model.IndexingResult, error) {
	out := make([]model.IndexingResult, len(records))
	for i, rec := range records {
		out[i] = model.IndexingResult{Key: rec.RecordKey(), StatusCode: 400}
	}
	return out, nil
}
