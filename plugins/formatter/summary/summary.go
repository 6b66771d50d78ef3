// Package summary 渲染比对汇总表：每个保留的 hit 一行，9 个固定字段后接片段坐标。
//
// 每个字段与每个片段标记之后都跟一个制表符，行尾换行。比对模式行首加 ">"，
// 并追加 query / hit 比对子串各一行。
package summary

import (
	"context"
	"io"
	"sort"
	"strconv"
	"strings"

	"orthoref/pkg/contract"
)

// Options: 渲染选项。
type Options struct {
	// Alignment: 比对模式（输出序列行并跳过自身命中）。
	Alignment bool `yaml:"alignment"`
}

// Formatter 实现 contract.Formatter；无状态。
type Formatter struct {
	alignment bool
}

var _ contract.Formatter = (*Formatter)(nil)

// New 创建汇总表渲染器。
func New(opts *Options) *Formatter {
	f := &Formatter{}
	if opts != nil {
		f.alignment = opts.Alignment
	}
	return f
}

// Format 依 q.Hits 的顺序渲染；无可输出 hit 时返回空 Reader。
func (f *Formatter) Format(ctx context.Context, q contract.Query) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var b strings.Builder
	for _, h := range q.Hits {
		if f.alignment && h.ID == q.ID {
			continue
		}
		f.writeHit(&b, q, h)
	}
	return strings.NewReader(b.String()), nil
}

func (f *Formatter) writeHit(b *strings.Builder, q contract.Query, h contract.Hit) {
	segs := make([]contract.Segment, len(h.Accepted))
	copy(segs, h.Accepted)
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].QueryFrom < segs[j].QueryFrom })
	spanQ, spanH := SegmentLengths(segs)

	if f.alignment {
		b.WriteByte('>')
	}
	field := func(s string) {
		b.WriteString(s)
		b.WriteByte('\t')
	}
	field(q.ID)
	field(h.ID)
	field(strconv.FormatFloat(h.TotalScore, 'f', 1, 64))
	field(strconv.Itoa(q.Length))
	field(strconv.Itoa(h.Length))
	field(strconv.Itoa(spanQ))
	field(strconv.Itoa(spanH))
	field(strconv.Itoa(h.QueryCoverage))
	field(strconv.Itoa(h.HitCoverage))
	for _, s := range segs {
		field("q:" + strconv.Itoa(s.QueryFrom) + "-" + strconv.Itoa(s.QueryTo) +
			" h:" + strconv.Itoa(s.HitFrom) + "-" + strconv.Itoa(s.HitTo))
	}
	b.WriteByte('\n')
	if !f.alignment {
		return
	}
	for _, s := range segs {
		b.WriteString(s.QuerySeq)
	}
	b.WriteByte('\n')
	for _, s := range segs {
		b.WriteString(s.HitSeq)
	}
	b.WriteByte('\n')
}

// SegmentLengths 返回两轴上 max(to)-min(from)+1；无片段时为 0。
func SegmentLengths(segs []contract.Segment) (query, hit int) {
	if len(segs) == 0 {
		return 0, 0
	}
	qMin, qMax := segs[0].QueryFrom, segs[0].QueryTo
	hMin, hMax := segs[0].HitFrom, segs[0].HitTo
	for _, s := range segs[1:] {
		qMin, qMax = min(qMin, s.QueryFrom), max(qMax, s.QueryTo)
		hMin, hMax = min(hMin, s.HitFrom), max(hMax, s.HitTo)
	}
	return qMax - qMin + 1, hMax - hMin + 1
}
