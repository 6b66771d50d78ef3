package summary

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orthoref/pkg/contract"
)

func render(t *testing.T, f *Formatter, q contract.Query) string {
	t.Helper()
	r, err := f.Format(context.Background(), q)
	require.NoError(t, err)
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(b)
}

func sampleQuery() contract.Query {
	return contract.Query{ID: "q1", Length: 300, Hits: []contract.Hit{
		{
			ID: "h1", Length: 250, TotalScore: 70.55, QueryCoverage: 150, HitCoverage: 150,
			// 接受顺序与 query 位置顺序不同
			Accepted: []contract.Segment{
				{BitScore: 40, QueryFrom: 151, QueryTo: 200, HitFrom: 101, HitTo: 150, QuerySeq: "CC", HitSeq: "DD"},
				{BitScore: 30.55, QueryFrom: 1, QueryTo: 100, HitFrom: 1, HitTo: 100, QuerySeq: "AA", HitSeq: "BB"},
			},
		},
		{
			ID: "q1", Length: 300, TotalScore: 600, QueryCoverage: 300, HitCoverage: 300,
			Accepted: []contract.Segment{{BitScore: 600, QueryFrom: 1, QueryTo: 300, HitFrom: 1, HitTo: 300, QuerySeq: "X", HitSeq: "X"}},
		},
	}}
}

func TestFormatPlain(t *testing.T) {
	got := render(t, New(nil), sampleQuery())
	want := "q1\th1\t70.5\t300\t250\t200\t150\t150\t150\tq:1-100 h:1-100\tq:151-200 h:101-150\t\n" +
		"q1\tq1\t600.0\t300\t300\t300\t300\t300\t300\tq:1-300 h:1-300\t\n"
	assert.Equal(t, want, got)
}

// 比对模式：行首 ">"、跳过自身命中、追加按 query 位置拼接的序列行。
func TestFormatAlignment(t *testing.T) {
	got := render(t, New(&Options{Alignment: true}), sampleQuery())
	want := ">q1\th1\t70.5\t300\t250\t200\t150\t150\t150\tq:1-100 h:1-100\tq:151-200 h:101-150\t\n" +
		"AACC\n" +
		"BBDD\n"
	assert.Equal(t, want, got)
}

func TestFormatEmptyQuery(t *testing.T) {
	assert.Equal(t, "", render(t, New(nil), contract.Query{ID: "q"}))
}

func TestSegmentLengths(t *testing.T) {
	q, h := SegmentLengths([]contract.Segment{
		{QueryFrom: 10, QueryTo: 20, HitFrom: 300, HitTo: 310},
		{QueryFrom: 50, QueryTo: 60, HitFrom: 5, HitTo: 15},
	})
	assert.Equal(t, 51, q)
	assert.Equal(t, 306, h)
	q, h = SegmentLengths(nil)
	assert.Zero(t, q)
	assert.Zero(t, h)
}

func TestFormatCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(nil).Format(ctx, sampleQuery())
	assert.ErrorIs(t, err, context.Canceled)
}
