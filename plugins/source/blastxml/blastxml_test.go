package blastxml

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orthoref/pkg/contract"
)

func collect(t *testing.T, s *Source, doc string) ([]contract.RawQuery, error) {
	t.Helper()
	var out []contract.RawQuery
	err := s.Queries(context.Background(), "t.xml", strings.NewReader(doc), func(q contract.RawQuery) error {
		out = append(out, q)
		return nil
	})
	return out, err
}

func fixture(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return string(b)
}

func wantQuery() contract.RawQuery {
	return contract.RawQuery{ID: "q1", Length: 300, Hits: []contract.RawHit{
		{ID: "h1", Length: 250, Segments: []contract.Segment{
			{BitScore: 40.5, QueryFrom: 1, QueryTo: 100, HitFrom: 1, HitTo: 100, QuerySeq: "MKV", HitSeq: "MRV"},
			{BitScore: 30, QueryFrom: 90, QueryTo: 200, HitFrom: 90, HitTo: 200, QuerySeq: "LLA", HitSeq: "LIA"},
		}},
		{ID: "h2", Length: 120, Segments: []contract.Segment{
			{BitScore: 12, QueryFrom: 5, QueryTo: 60, HitFrom: 15, HitTo: 70},
		}},
	}}
}

// 新旧两种布局对等内容产出相同的 RawQuery。
func TestQueriesBothSchemasAgree(t *testing.T) {
	src, err := New(nil)
	require.NoError(t, err)
	for _, name := range []string{"current.xml", "legacy.xml"} {
		got, err := collect(t, src, fixture(t, name))
		require.NoError(t, err, name)
		if diff := cmp.Diff([]contract.RawQuery{wantQuery()}, got); diff != "" {
			t.Fatalf("%s mismatch (-want +got):\n%s", name, diff)
		}
	}
}

// 多个 Iteration 依次回调；缺 query-def 时回退到 BlastOutput_query-def。
func TestQueriesMultipleIterations(t *testing.T) {
	doc := `<BlastOutput>
<BlastOutput_query-def>fallback desc</BlastOutput_query-def>
<BlastOutput_query-len>77</BlastOutput_query-len>
<BlastOutput_iterations>
<Iteration><Iteration_query-def>a x</Iteration_query-def><Iteration_query-len>10</Iteration_query-len><Iteration_hits></Iteration_hits></Iteration>
<Iteration><Iteration_hits><Hit><Hit_def>z</Hit_def><Hit_len>5</Hit_len></Hit></Iteration_hits></Iteration>
</BlastOutput_iterations></BlastOutput>`
	src, _ := New(nil)
	got, err := collect(t, src, doc)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, 10, got[0].Length)
	assert.Empty(t, got[0].Hits)
	assert.Equal(t, "fallback", got[1].ID)
	assert.Equal(t, 77, got[1].Length)
	require.Len(t, got[1].Hits, 1)
	assert.Empty(t, got[1].Hits[0].Segments)
}

// 显式 schema 覆盖自动识别。
func TestQueriesSchemaOption(t *testing.T) {
	cur, err := New(&Options{Schema: "current"})
	require.NoError(t, err)
	got, err := collect(t, cur, fixture(t, "legacy.xml"))
	require.NoError(t, err)
	assert.Empty(t, got)

	leg, err := New(&Options{Schema: "LEGACY"})
	require.NoError(t, err)
	got, err = collect(t, leg, fixture(t, "current.xml"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Len(t, got[0].Hits, 2)

	_, err = New(&Options{Schema: "v3"})
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}

func TestQueriesMalformed(t *testing.T) {
	src, _ := New(nil)
	cases := map[string]string{
		"语法错误":  `<BlastOutput><Iteration>`,
		"空文档":   ``,
		"分数非数值": `<BlastOutput><Iteration><Iteration_query-def>q</Iteration_query-def><Iteration_hits><Hit><Hit_def>h</Hit_def><Hit_hsps><Hsp><Hsp_bit-score>abc</Hsp_bit-score><Hsp_query-from>1</Hsp_query-from><Hsp_query-to>2</Hsp_query-to><Hsp_hit-from>1</Hsp_hit-from><Hsp_hit-to>2</Hsp_hit-to></Hsp></Hit_hsps></Hit></Iteration_hits></Iteration></BlastOutput>`,
		"长度非数值": `<BlastOutput><BlastOutput_query-def>q</BlastOutput_query-def><BlastOutput_query-len>3x</BlastOutput_query-len></BlastOutput>`,
		"分数NaN":  `<BlastOutput><Iteration><Iteration_query-def>q</Iteration_query-def><Iteration_hits><Hit><Hit_def>h</Hit_def><Hit_hsps><Hsp><Hsp_bit-score>NaN</Hsp_bit-score><Hsp_query-from>1</Hsp_query-from><Hsp_query-to>2</Hsp_query-to><Hsp_hit-from>1</Hsp_hit-from><Hsp_hit-to>2</Hsp_hit-to></Hsp></Hit_hsps></Hit></Iteration_hits></Iteration></BlastOutput>`,
		"分数Inf":  `<BlastOutput><Iteration><Iteration_query-def>q</Iteration_query-def><Iteration_hits><Hit><Hit_def>h</Hit_def><Hit_hsps><Hsp><Hsp_bit-score>+Inf</Hsp_bit-score><Hsp_query-from>1</Hsp_query-from><Hsp_query-to>2</Hsp_query-to><Hsp_hit-from>1</Hsp_hit-from><Hsp_hit-to>2</Hsp_hit-to></Hsp></Hit_hsps></Hit></Iteration_hits></Iteration></BlastOutput>`,
		"缺少坐标":  `<BlastOutput><Hit><Hit_def>h</Hit_def><Hit_hsps><Hsp><Hsp_bit-score>5</Hsp_bit-score></Hsp></Hit_hsps></Hit></BlastOutput>`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := collect(t, src, doc)
			assert.ErrorIs(t, err, contract.ErrMalformedInput)
		})
	}
}

// 没有任何 query 信息的合法文档不产生输出。
func TestQueriesNoQueries(t *testing.T) {
	src, _ := New(nil)
	got, err := collect(t, src, `<BlastOutput><BlastOutput_program>blastp</BlastOutput_program></BlastOutput>`)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQueriesYieldErrorStops(t *testing.T) {
	src, _ := New(nil)
	calls := 0
	stop := assert.AnError
	err := src.Queries(context.Background(), "t", strings.NewReader(fixture(t, "current.xml")), func(contract.RawQuery) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}
