package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIndexKind(t *testing.T) {
	kind, err := ParseIndexKind("cogsearch")
	require.NoError(t, err)
	assert.Equal(t, PlainText, kind)

	kind, err = ParseIndexKind(" CogSearchVS ")
	require.NoError(t, err)
	assert.Equal(t, VectorSemantic, kind)

	_, err = ParseIndexKind("redis")
	assert.True(t, errors.Is(err, ErrUnknownIndexKind))
}

func TestIndexKind_JSON(t *testing.T) {
	var v struct {
		Kind IndexKind `json:"kind"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"cogsearchvs"}`), &v))
	assert.Equal(t, VectorSemantic, v.Kind)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"cogsearchvs"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"kind":"bogus"}`), &v))
}

func TestSanitizeID(t *testing.T) {
	id := SanitizeID("reports/Q1 2024: a,b&c.pdf", 3)
	assert.Equal(t, "reports_Q1_2024__a_b_c_pdf-3", id)
	for _, ch := range []string{".", " ", ":", "/", ",", "&"} {
		assert.NotContains(t, id, ch)
	}
	// 确定性
	assert.Equal(t, id, SanitizeID("reports/Q1 2024: a,b&c.pdf", 3))
}

func TestSanitizeID_DistinctCounters(t *testing.T) {
	names := []string{"a.pdf", "dir/b c.txt", "x-1", "", "&&&"}
	for _, name := range names {
		seen := make(map[string]int)
		for n := 1; n <= 2000; n++ {
			id := SanitizeID(name, n)
			prev, dup := seen[id]
			require.Falsef(t, dup, "collision for %q between %d and %d", name, prev, n)
			seen[id] = n
			assert.False(t, strings.ContainsAny(id, ". :/,&"))
		}
	}
}

func TestFilter_String(t *testing.T) {
	f := Filter{
		{Field: "indexType", Value: "cogsearchvs"},
		{Field: "indexName", Value: "docs-vs"},
	}
	assert.Equal(t, "indexType eq 'cogsearchvs' and indexName eq 'docs-vs'", f.String())

	quoted := Filter{{Field: "indexName", Value: "o'brien"}}
	assert.Equal(t, "indexName eq 'o''brien'", quoted.String())
	assert.Equal(t, "", Filter(nil).String())
}

func TestNewResult(t *testing.T) {
	r := NewResult(nil)
	assert.Equal(t, OutcomeEmpty, r.Outcome)
	assert.NotNil(t, r.Results)
	assert.Empty(t, r.Hits())

	r = NewResult(&SearchResults{Hits: []Hit{{ID: "1"}}})
	assert.Equal(t, OutcomeMatched, r.Outcome)
	assert.Len(t, r.Hits(), 1)

	r = FailedResult(errors.New("boom"))
	assert.True(t, r.Failed())
	assert.Nil(t, r.Hits())
}

func TestVectorSearchConfig_Profile(t *testing.T) {
	cfg := &VectorSearchConfig{
		Algorithms: []VectorAlgorithm{{Name: "default", Kind: AlgorithmHNSW, EfSearch: 500}},
		Profiles:   []VectorProfile{{Name: "myHnswProfile", Algorithm: "default"}},
	}
	_, algo, ok := cfg.Profile("myHnswProfile")
	require.True(t, ok)
	assert.Equal(t, 500, algo.EfSearch)

	_, _, ok = cfg.Profile("missing")
	assert.False(t, ok)

	var nilCfg *VectorSearchConfig
	_, _, ok = nilCfg.Profile("myHnswProfile")
	assert.False(t, ok)
}

func TestIngestionReport_Add(t *testing.T) {
	var r IngestionReport
	r.Add(BatchReport{Mode: UploadMergeOrUpload, Attempted: 1000, Succeeded: 998})
	r.Add(BatchReport{Mode: UploadPlain, Attempted: 5, Succeeded: 5})
	assert.Equal(t, 1005, r.Attempted)
	assert.Equal(t, 1003, r.Succeeded)
	assert.Len(t, r.Batches, 2)
}
