package pipeline

import (
	"context"
	"errors"
	"io"
	"iter"
	"strings"
	"testing"

	"cogsearch-go/internal/config"
	"cogsearch-go/internal/model"
	"cogsearch-go/internal/service"
	"cogsearch-go/pkg/embedding"
	"cogsearch-go/pkg/tasks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryObjects map[string]string

func (m memoryObjects) Get(_ context.Context, name string) (io.ReadCloser, error) {
	v, ok := m[name]
	if !ok {
		return nil, errors.New("no such object")
	}
	return io.NopCloser(strings.NewReader(v)), nil
}

type fakeExtractor struct {
	text  string
	calls int
}

func (f *fakeExtractor) Enabled() bool { return true }

func (f *fakeExtractor) ExtractText(_ context.Context, r io.Reader, _ string) (string, error) {
	f.calls++
	_, _ = io.ReadAll(r)
	return f.text, nil
}

type fakeSchema struct {
	service.SchemaService
	kinds   []model.IndexKind
	names   []string
	created bool
	err     error
}

func (f *fakeSchema) CreateIndex(_ context.Context, kind model.IndexKind, name string) (bool, error) {
	f.kinds = append(f.kinds, kind)
	f.names = append(f.names, name)
	return f.created, f.err
}

type fakeIngestion struct {
	records []model.Record
	fail    map[string]bool
	err     error
}

func (f *fakeIngestion) Ingest(_ context.Context, _ string, records iter.Seq2[model.Record, error]) (model.IngestionReport, error) {
	var report model.IngestionReport
	b := model.BatchReport{Mode: model.UploadPlain}
	for rec, err := range records {
		if err != nil {
			return report, err
		}
		f.records = append(f.records, rec)
		b.Attempted++
		if !f.fail[rec.RecordKey()] {
			b.Succeeded++
		}
	}
	report.Add(b)
	return report, f.err
}

type memoryRuns struct {
	runs []model.IngestionRun
}

func (m *memoryRuns) Create(run *model.IngestionRun) error {
	m.runs = append(m.runs, *run)
	return nil
}

func (m *memoryRuns) FindRecent(string, int) ([]model.IngestionRun, error) { return m.runs, nil }

type fixture struct {
	schema    *fakeSchema
	ingestion *fakeIngestion
	extractor *fakeExtractor
	runs      *memoryRuns
	processor *Processor
}

func newFixture(objects ObjectSource) *fixture {
	f := &fixture{
		schema:    &fakeSchema{created: true},
		ingestion: &fakeIngestion{},
		extractor: &fakeExtractor{text: "extracted body"},
		runs:      &memoryRuns{},
	}
	embedder := embedding.ProviderFunc(func(context.Context, embedding.ModelType, string) ([]float32, error) {
		return []float32{0.1, 0.2}, nil
	})
	f.processor = NewProcessor(Options{
		Objects:   objects,
		Extractor: f.extractor,
		Splitter:  NewSplitter(config.SplitterConfig{ChunkSize: 30, ChunkOverlap: 0}),
		Schema:    f.schema,
		Batcher:   service.NewBatcher(embedder),
		Ingestion: f.ingestion,
		Runs:      f.runs,
	})
	return f
}

func TestProcessor_InlineText(t *testing.T) {
	f := newFixture(nil)
	task := tasks.IngestTask{TaskID: "t1", IndexName: "docs", IndexKind: "cogsearch", FileName: "notes/a.txt",
		Text: "first paragraph here\n\nsecond paragraph here"}

	report, err := f.processor.Run(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, []model.IndexKind{model.PlainText}, f.schema.kinds)
	assert.Equal(t, []string{"docs"}, f.schema.names)

	require.Len(t, f.ingestion.records, 2)
	rec := f.ingestion.records[0].(model.DocumentRecord)
	assert.Equal(t, "notes_a_txt-1", rec.ID)
	assert.Equal(t, "a.txt", rec.SourceFile)
	assert.Nil(t, rec.Vector)

	require.Len(t, f.runs.runs, 1)
	run := f.runs.runs[0]
	assert.Equal(t, model.RunStatusSucceeded, run.Status)
	assert.Equal(t, 2, run.Chunks)
	assert.Equal(t, "docs", run.IndexName)
	assert.Empty(t, run.Error)
}

func TestProcessor_VectorIndexEmbedsChunks(t *testing.T) {
	f := newFixture(nil)
	task := tasks.IngestTask{TaskID: "t1", IndexName: "vs", IndexKind: "cogsearchvs", ModelType: "openai", FileName: "a.txt", Text: "short text"}

	_, err := f.processor.Run(context.Background(), task)
	require.NoError(t, err)
	require.Len(t, f.ingestion.records, 1)
	rec := f.ingestion.records[0].(model.DocumentRecord)
	assert.Equal(t, []float32{0.1, 0.2}, rec.Vector)
	assert.Equal(t, "a.txt", rec.Metadata)
}

func TestProcessor_ObjectPlainTextSkipsTika(t *testing.T) {
	f := newFixture(memoryObjects{"obj/1": "hello world"})
	task := tasks.IngestTask{TaskID: "t1", IndexName: "docs", IndexKind: "cogsearch", FileName: "a.md", ObjectName: "obj/1"}

	_, err := f.processor.Run(context.Background(), task)
	require.NoError(t, err)
	assert.Zero(t, f.extractor.calls)
	assert.Equal(t, "hello world", f.ingestion.records[0].(model.DocumentRecord).Content)
}

func TestProcessor_ObjectBinaryUsesTika(t *testing.T) {
	f := newFixture(memoryObjects{"obj/1": "%PDF-1.4"})
	task := tasks.IngestTask{TaskID: "t1", IndexName: "docs", IndexKind: "cogsearch", FileName: "a.pdf", ObjectName: "obj/1"}

	_, err := f.processor.Run(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, 1, f.extractor.calls)
	assert.Equal(t, "extracted body", f.ingestion.records[0].(model.DocumentRecord).Content)
}

func TestProcessor_ObjectWithoutStore(t *testing.T) {
	f := newFixture(nil)
	task := tasks.IngestTask{TaskID: "t1", IndexName: "docs", IndexKind: "cogsearch", FileName: "a.md", ObjectName: "obj/1"}

	_, err := f.processor.Run(context.Background(), task)
	assert.ErrorIs(t, err, ErrNoObjectStore)
	require.Len(t, f.runs.runs, 1)
	assert.Equal(t, model.RunStatusFailed, f.runs.runs[0].Status)
}

func TestProcessor_BlankTextIsEmptyDocument(t *testing.T) {
	f := newFixture(nil)
	task := tasks.IngestTask{TaskID: "t1", IndexName: "docs", IndexKind: "cogsearch", FileName: "a.txt", Text: "   \n\n  "}

	_, err := f.processor.Run(context.Background(), task)
	assert.ErrorIs(t, err, ErrEmptyDocument)
	assert.Empty(t, f.schema.names)
}

func TestProcessor_UnknownKind(t *testing.T) {
	f := newFixture(nil)
	task := tasks.IngestTask{TaskID: "t1", IndexName: "docs", IndexKind: "lucene", FileName: "a.txt", Text: "x"}

	_, err := f.processor.Run(context.Background(), task)
	assert.ErrorIs(t, err, model.ErrUnknownIndexKind)
	assert.Empty(t, f.runs.runs)
}

func TestProcessor_SchemaErrorStopsIngest(t *testing.T) {
	f := newFixture(nil)
	f.schema.err = errors.New("cluster down")
	task := tasks.IngestTask{TaskID: "t1", IndexName: "docs", IndexKind: "cogsearch", FileName: "a.txt", Text: "x"}

	err := f.processor.Process(context.Background(), task)
	require.Error(t, err)
	assert.Empty(t, f.ingestion.records)
	assert.Equal(t, model.RunStatusFailed, f.runs.runs[0].Status)
}

func TestProcessor_PartialFailureIsNotAnError(t *testing.T) {
	f := newFixture(nil)
	f.ingestion.fail = map[string]bool{"a_txt-2": true}
	task := tasks.IngestTask{TaskID: "t1", IndexName: "docs", IndexKind: "cogsearch", FileName: "a.txt",
		Text: "first paragraph here\n\nsecond paragraph here"}

	require.NoError(t, f.processor.Process(context.Background(), task))
	assert.Equal(t, model.RunStatusPartial, f.runs.runs[0].Status)
	assert.Equal(t, 1, f.runs.runs[0].Succeeded)
}

func TestRunStatus(t *testing.T) {
	ok := model.IngestionReport{Attempted: 3, Succeeded: 3}
	some := model.IngestionReport{Attempted: 3, Succeeded: 1}
	assert.Equal(t, model.RunStatusSucceeded, RunStatus(ok, nil))
	assert.Equal(t, model.RunStatusPartial, RunStatus(some, nil))
	assert.Equal(t, model.RunStatusPartial, RunStatus(ok, errors.New("later batch failed")))
	assert.Equal(t, model.RunStatusFailed, RunStatus(model.IngestionReport{}, errors.New("boom")))
}

func TestSplitter_DropsBlankChunks(t *testing.T) {
	s := NewSplitter(config.SplitterConfig{ChunkSize: 30, ChunkOverlap: 0})
	chunks, err := s.Split("alpha beta\n\n\n\ngamma delta")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(c.PageContent))
	}
}
