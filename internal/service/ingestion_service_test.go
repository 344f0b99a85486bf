package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cogsearch-go/internal/model"
	"cogsearch-go/pkg/embedding"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatcher_PlainTextRecords(t *testing.T) {
	emb := &fakeEmbedder{}
	b := NewBatcher(emb)

	var recs []model.DocumentRecord
	for rec, err := range b.MakeRecords(context.Background(), model.PlainText, embedding.AzureOpenAI, "reports/q1.pdf",
		[]model.Chunk{{PageContent: "a"}, {PageContent: "b"}}) {
		require.NoError(t, err)
		recs = append(recs, rec.(model.DocumentRecord))
	}

	require.Len(t, recs, 2)
	assert.Equal(t, "reports_q1_pdf-1", recs[0].ID)
	assert.Equal(t, "reports_q1_pdf-2", recs[1].ID)
	assert.Equal(t, "q1.pdf", recs[0].SourceFile)
	assert.Equal(t, "b", recs[1].Content)
	assert.Nil(t, recs[0].Vector)
	assert.Equal(t, 0, emb.calls)
}

func TestBatcher_VectorSemanticEmbedsLazily(t *testing.T) {
	emb := &fakeEmbedder{}
	b := NewBatcher(emb)

	seq := b.MakeRecords(context.Background(), model.VectorSemantic, embedding.AzureOpenAI, "doc.txt", chunks(5))
	assert.Equal(t, 0, emb.calls)

	n := 0
	for rec, err := range seq {
		require.NoError(t, err)
		r := rec.(model.DocumentRecord)
		assert.Len(t, r.Vector, 3)
		assert.Equal(t, "doc.txt", r.Metadata)
		assert.Empty(t, r.SourceFile)
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, emb.calls)
}

func TestBatcher_SingleUse(t *testing.T) {
	b := NewBatcher(nil)
	seq := b.MakeRecords(context.Background(), model.PlainText, embedding.AzureOpenAI, "doc.txt", chunks(2))
	for range seq {
	}

	var errs []error
	for _, err := range seq {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.Error(t, errs[0])
}

func TestBatcher_EmbeddingErrorEndsSequence(t *testing.T) {
	emb := &fakeEmbedder{err: errRemote, failAt: 2}
	b := NewBatcher(emb)

	var got int
	var lastErr error
	for rec, err := range b.MakeRecords(context.Background(), model.VectorSemantic, embedding.OpenAI, "doc.txt", chunks(4)) {
		if err != nil {
			lastErr = err
			continue
		}
		assert.NotNil(t, rec)
		got++
	}
	assert.Equal(t, 1, got)
	assert.ErrorIs(t, lastErr, errRemote)
	assert.Equal(t, 2, emb.calls)
}

func TestIngestionService_BatchSizes(t *testing.T) {
	cases := []struct {
		total int
		sizes []int
		modes []model.UploadMode
	}{
		{2500, []int{1000, 1000, 500}, []model.UploadMode{model.UploadMergeOrUpload, model.UploadMergeOrUpload, model.UploadPlain}},
		{2000, []int{1000, 1000}, []model.UploadMode{model.UploadMergeOrUpload, model.UploadMergeOrUpload}},
		{999, []int{999}, []model.UploadMode{model.UploadPlain}},
		{0, nil, nil},
	}
	for _, tc := range cases {
		backend := &fakeBackend{}
		svc := NewIngestionService(backend, 0)
		seq := NewBatcher(nil).MakeRecords(context.Background(), model.PlainText, embedding.AzureOpenAI, "big.txt", chunks(tc.total))

		report, err := svc.Ingest(context.Background(), "docs", seq)
		require.NoError(t, err)

		var sizes []int
		var modes []model.UploadMode
		for _, u := range backend.uploads {
			sizes = append(sizes, len(u.records))
			modes = append(modes, u.mode)
			assert.Equal(t, "docs", u.index)
		}
		assert.Equal(t, tc.sizes, sizes, "total %d", tc.total)
		assert.Equal(t, tc.modes, modes, "total %d", tc.total)
		assert.Equal(t, tc.total, report.Attempted)
		assert.Equal(t, tc.total, report.Succeeded)
		assert.Len(t, report.Batches, len(tc.sizes))
	}
}

func TestIngestionService_RecordOrderAndIDsAreUnique(t *testing.T) {
	backend := &fakeBackend{}
	svc := NewIngestionService(backend, 1000)
	seq := NewBatcher(nil).MakeRecords(context.Background(), model.PlainText, embedding.AzureOpenAI, "a.b c.txt", chunks(1500))

	_, err := svc.Ingest(context.Background(), "docs", seq)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, u := range backend.uploads {
		for _, r := range u.records {
			assert.False(t, seen[r.RecordKey()], r.RecordKey())
			seen[r.RecordKey()] = true
		}
	}
	assert.Len(t, seen, 1500)
	assert.Equal(t, "a_b_c_txt-1", backend.uploads[0].records[0].RecordKey())
	assert.Equal(t, "a_b_c_txt-1001", backend.uploads[1].records[0].RecordKey())
}

func TestIngestionService_CountsPerRecordFailures(t *testing.T) {
	backend := &fakeBackend{failKeys: map[string]bool{"f_txt-2": true, "f_txt-3": true}}
	svc := NewIngestionService(backend, 1000)
	seq := NewBatcher(nil).MakeRecords(context.Background(), model.PlainText, embedding.AzureOpenAI, "f.txt", chunks(5))

	report, err := svc.Ingest(context.Background(), "docs", seq)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Attempted)
	assert.Equal(t, 3, report.Succeeded)
	assert.Len(t, backend.uploads, 1)
}

func TestIngestionService_UploadErrorStops(t *testing.T) {
	backend := &fakeBackend{uploadErr: errRemote}
	svc := NewIngestionService(backend, 2)
	seq := NewBatcher(nil).MakeRecords(context.Background(), model.PlainText, embedding.AzureOpenAI, "f.txt", chunks(5))

	report, err := svc.Ingest(context.Background(), "docs", seq)
	assert.ErrorIs(t, err, errRemote)
	assert.Empty(t, report.Batches)
	assert.Len(t, backend.uploads, 1)
}

func TestIngestionService_SourceErrorStops(t *testing.T) {
	backend := &fakeBackend{}
	svc := NewIngestionService(backend, 2)
	emb := &fakeEmbedder{err: errors.New("API returned unexpected status code: 400: bad"), failAt: 4}
	seq := NewBatcher(emb).MakeRecords(context.Background(), model.VectorSemantic, embedding.AzureOpenAI, "f.txt", chunks(6))

	report, err := svc.Ingest(context.Background(), "docs", seq)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "embed chunk 4"))
	assert.Equal(t, 2, report.Attempted)
	assert.Len(t, backend.uploads, 1)
}
