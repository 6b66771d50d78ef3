package contract

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNormalizeFileID 验证路径规范化逻辑。
func TestNormalizeFileID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"系统分隔符", filepath.Join("a", "b", "c"), "a/b/c"},
		{"父目录", "./x/../y", "y"},
		{"空串", "", "."},
		{"Windows路径", "C:\\data\\blast\\run.xml", "C:/data/blast/run.xml"},
		{"清理多余斜杠", "path//to///file.xml", "path/to/file.xml"},
		{"混合分隔符", "in\\..\\test/./data\\\\a.xml", "test/data/a.xml"},
		{"STDIN 约定", "-", "-"},
		{"Unix绝对路径", "/home/user/../admin/aa.tsv", "/home/admin/aa.tsv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(NormalizeFileID(tt.input)))
		})
	}
}

// TestSegmentSpans 验证闭区间长度。
func TestSegmentSpans(t *testing.T) {
	s := Segment{QueryFrom: 1, QueryTo: 100, HitFrom: 5, HitTo: 5}
	assert.Equal(t, 100, s.QuerySpan())
	assert.Equal(t, 1, s.HitSpan())
}

// TestValidateSegment 覆盖坐标校验分支。
func TestValidateSegment(t *testing.T) {
	require.NoError(t, ValidateSegment(Segment{QueryFrom: 1, QueryTo: 1, HitFrom: 1, HitTo: 1}))
	cases := []Segment{
		{QueryFrom: 0, QueryTo: 10, HitFrom: 1, HitTo: 10},
		{QueryFrom: 10, QueryTo: 9, HitFrom: 1, HitTo: 10},
		{QueryFrom: 1, QueryTo: 10, HitFrom: 7, HitTo: 3},
	}
	for _, c := range cases {
		err := ValidateSegment(c)
		assert.True(t, errors.Is(err, ErrInvariantViolation), "segment %+v: %v", c, err)
	}
}

// TestValidateRow 覆盖汇总行校验。
func TestValidateRow(t *testing.T) {
	require.NoError(t, ValidateRow(SummaryRow{Query: "a", Candidate: "b"}))
	assert.ErrorIs(t, ValidateRow(SummaryRow{Query: "", Candidate: "b"}), ErrMalformedRecord)
	assert.ErrorIs(t, ValidateRow(SummaryRow{Query: "a", Candidate: "b", HitLen: -1}), ErrMalformedRecord)
}

// TestClusterMembers 验证按侧取成员与 Universe 查询。
func TestClusterMembers(t *testing.T) {
	c := Cluster{ID: "1", A: []string{"a1", "a2"}, B: []string{"b1"}}
	assert.Equal(t, []string{"a1", "a2"}, c.Members(SideA))
	assert.Equal(t, []string{"b1"}, c.Members(SideB))
	assert.Equal(t, "B", SideB.String())

	u := Universe{"a1": {}}
	assert.True(t, u.Has("a1"))
	assert.False(t, u.Has("zz"))
}

// TestPartition 按物种相等划分，其他物种与空 ID 计入 Skipped；Universe 含其他物种的 ID。
func TestPartition(t *testing.T) {
	clusters := []Cluster{
		{ID: "1", Genes: []Gene{{Species: "HS", ID: "h1"}, {Species: "MM", ID: "m1"}, {Species: "HS", ID: "h2"}}},
		{ID: "2", Genes: []Gene{{Species: "DM", ID: "d1"}, {Species: "MM", ID: ""}}},
	}
	set := Partition(clusters, "HS", "MM")
	require.Len(t, set.Clusters, 2)
	assert.Equal(t, []string{"h1", "h2"}, set.Clusters[0].A)
	assert.Equal(t, []string{"m1"}, set.Clusters[0].B)
	assert.Empty(t, set.Clusters[1].A)
	assert.NotNil(t, set.Clusters[1].B)
	assert.Equal(t, 2, set.Skipped)
	assert.True(t, set.Universe.Has("m1"))
	assert.True(t, set.Universe.Has("d1"))
	assert.False(t, set.Universe.Has(""))
	assert.Len(t, set.Universe, 4)
}
