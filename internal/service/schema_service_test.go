package service

import (
	"context"
	"testing"

	"cogsearch-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaService_CreateVectorSemanticIndex(t *testing.T) {
	backend := &fakeBackend{}
	svc := NewSchemaService(backend, 1536)

	created, err := svc.CreateIndex(context.Background(), model.VectorSemantic, "docs-vs")
	require.NoError(t, err)
	assert.True(t, created)

	require.Len(t, backend.created, 1)
	desc := backend.created[0]
	assert.Equal(t, "docs-vs", desc.Name)
	assert.Equal(t, []string{"id", "content", "content_vector", "metadata"}, desc.FieldNames())
	require.NotNil(t, desc.VectorSearch)
	assert.Len(t, desc.VectorSearch.Algorithms, 2)

	vec, ok := desc.Field("content_vector")
	require.True(t, ok)
	assert.Equal(t, 1536, vec.VectorDimensions)
	_, algo, ok := desc.VectorSearch.Profile(vec.VectorProfile)
	require.True(t, ok)
	assert.Equal(t, model.AlgorithmHNSW, algo.Kind)
	assert.Equal(t, 4, algo.M)
	assert.Equal(t, 400, algo.EfConstruction)
	assert.Equal(t, 500, algo.EfSearch)
	assert.Equal(t, model.VectorMetricCosine, algo.Metric)
	assert.Equal(t, model.AlgorithmExhaustiveKNN, desc.VectorSearch.Algorithms[1].Kind)
}

func TestSchemaService_CreatePlainTextIndex(t *testing.T) {
	backend := &fakeBackend{}
	svc := NewSchemaService(backend, 1536)

	_, err := svc.CreateIndex(context.Background(), model.PlainText, "docs")
	require.NoError(t, err)

	desc := backend.created[0]
	assert.Equal(t, []string{"id", "content", "sourcefile"}, desc.FieldNames())
	assert.Nil(t, desc.VectorSearch)
	src, _ := desc.Field("sourcefile")
	assert.True(t, src.Filterable)
	assert.True(t, src.Facetable)
	require.Len(t, desc.Semantic, 1)
	assert.Equal(t, "content", desc.Semantic[0].TitleField)
	assert.Equal(t, []string{"sourcefile"}, desc.Semantic[0].KeywordFields)
}

func TestSchemaService_CreateIsIdempotent(t *testing.T) {
	backend := &fakeBackend{}
	svc := NewSchemaService(backend, 1536)

	first, err := svc.CreateIndex(context.Background(), model.VectorSemantic, "docs-vs")
	require.NoError(t, err)
	second, err := svc.CreateIndex(context.Background(), model.VectorSemantic, "docs-vs")
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
	assert.Len(t, backend.created, 1)
	assert.Equal(t, []string{"docs-vs"}, backend.indexes)
}

func TestSchemaService_CreateUnknownKind(t *testing.T) {
	backend := &fakeBackend{}
	svc := NewSchemaService(backend, 1536)

	_, err := svc.CreateIndex(context.Background(), model.IndexKind(9), "x")
	assert.ErrorIs(t, err, model.ErrUnknownIndexKind)
	assert.Empty(t, backend.created)
}

func TestSchemaService_CreateReportsRemoteError(t *testing.T) {
	backend := &fakeBackend{createErr: errRemote}
	svc := NewSchemaService(backend, 1536)

	created, err := svc.CreateIndex(context.Background(), model.PlainText, "docs")
	assert.ErrorIs(t, err, errRemote)
	assert.False(t, created)
}

func TestSchemaService_DeleteMissingIndexIsNoop(t *testing.T) {
	backend := &fakeBackend{indexes: []string{"other"}}
	svc := NewSchemaService(backend, 1536)

	deleted, err := svc.DeleteIndex(context.Background(), "docs")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Empty(t, backend.deleted)
}

func TestSchemaService_DeleteExistingIndex(t *testing.T) {
	backend := &fakeBackend{indexes: []string{"docs", "other"}}
	svc := NewSchemaService(backend, 1536)

	deleted, err := svc.DeleteIndex(context.Background(), "docs")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, []string{"docs"}, backend.deleted)
	assert.Equal(t, []string{"other"}, backend.indexes)
}

func TestSchemaService_ListErrorIsReturned(t *testing.T) {
	backend := &fakeBackend{listErr: errRemote}
	svc := NewSchemaService(backend, 1536)

	_, err := svc.DeleteIndex(context.Background(), "docs")
	assert.ErrorIs(t, err, errRemote)
	_, err = svc.EnsureKbIndex(context.Background(), "aoaikb")
	assert.ErrorIs(t, err, errRemote)
}

func TestSchemaService_EnsureKbIndex(t *testing.T) {
	backend := &fakeBackend{}
	svc := NewSchemaService(backend, 0)

	created, err := svc.EnsureKbIndex(context.Background(), "aoaikb")
	require.NoError(t, err)
	assert.True(t, created)

	desc := backend.created[0]
	assert.Equal(t, []string{"id", "question", "indexType", "indexName", "vectorQuestion", "answer"}, desc.FieldNames())
	vec, _ := desc.Field("vectorQuestion")
	assert.Equal(t, model.DefaultVectorDimensions, vec.VectorDimensions)
	indexType, _ := desc.Field("indexType")
	assert.True(t, indexType.Filterable)

	created, err = svc.EnsureKbIndex(context.Background(), "aoaikb")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, backend.created, 1)
}
