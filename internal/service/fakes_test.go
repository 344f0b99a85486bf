package service

import (
	"context"
	"errors"
	"slices"

	"cogsearch-go/internal/model"
	"cogsearch-go/pkg/embedding"
)

type uploadCall struct {
	index   string
	mode    model.UploadMode
	records []model.Record
}

type searchCall struct {
	index string
	req   model.SearchRequest
}

// fakeBackend 是 SearchBackend 的内存替身，记录所有调用。
type fakeBackend struct {
	indexes  []string
	created  []model.IndexDescriptor
	deleted  []string
	uploads  []uploadCall
	searches []searchCall

	listErr   error
	createErr error
	uploadErr error
	// failKeys 中的记录在写入结果中标记为失败。
	failKeys map[string]bool
	// search 为 nil 时返回空结果。
	search func(call int, index string, req model.SearchRequest) (*model.SearchResults, error)
}

func (f *fakeBackend) ListIndexNames(context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return slices.Clone(f.indexes), nil
}

func (f *fakeBackend) CreateIndex(_ context.Context, desc model.IndexDescriptor) error {
	f.created = append(f.created, desc)
	if f.createErr != nil {
		return f.createErr
	}
	f.indexes = append(f.indexes, desc.Name)
	return nil
}

func (f *fakeBackend) DeleteIndex(_ context.Context, name string) error {
	f.deleted = append(f.deleted, name)
	f.indexes = slices.DeleteFunc(f.indexes, func(n string) bool { return n == name })
	return nil
}

func (f *fakeBackend) UploadDocuments(_ context.Context, index string, mode model.UploadMode, records []model.Record) ([]model.IndexingResult, error) {
	f.uploads = append(f.uploads, uploadCall{index: index, mode: mode, records: slices.Clone(records)})
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	out := make([]model.IndexingResult, 0, len(records))
	for _, r := range records {
		ok := !f.failKeys[r.RecordKey()]
		status := 201
		if !ok {
			status = 400
		}
		out = append(out, model.IndexingResult{Key: r.RecordKey(), Succeeded: ok, StatusCode: status})
	}
	return out, nil
}

func (f *fakeBackend) Search(_ context.Context, index string, req model.SearchRequest) (*model.SearchResults, error) {
	f.searches = append(f.searches, searchCall{index: index, req: req})
	if f.search == nil {
		return &model.SearchResults{}, nil
	}
	return f.search(len(f.searches), index, req)
}

// fakeEmbedder 返回固定向量并记录调用次数。
type fakeEmbedder struct {
	calls  int
	texts  []string
	vector []float32
	err    error
	// failAt 为第几次调用返回 err，0 表示每次都按 err 返回。
	failAt int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ embedding.ModelType, text string) ([]float32, error) {
	f.calls++
	f.texts = append(f.texts, text)
	if f.err != nil && (f.failAt == 0 || f.failAt == f.calls) {
		return nil, f.err
	}
	if f.vector != nil {
		return f.vector, nil
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

var errRemote = errors.New("remote unavailable")

func chunks(n int) []model.Chunk {
	out := make([]model.Chunk, n)
	for i := range out {
		out[i] = model.Chunk{PageContent: "page"}
	}
	return out
}
