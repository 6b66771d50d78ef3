// Package blastxml 流式解析 BLAST XML（-m7 / -outfmt 5），把新旧两种布局统一为 contract.RawQuery 序列。
//
// 新布局：每个 <Iteration> 为一个 query，信息取自 Iteration_query-def/len；
// 缺失时回退到 BlastOutput_query-def/len。
// 旧布局：没有 <Iteration>，全文档的 <Hit> 归属于由 BlastOutput_query-def/len 描述的单个 query。
package blastxml

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"orthoref/pkg/contract"
)

// Schema 名称。
const (
	SchemaAuto    = "auto"
	SchemaCurrent = "current"
	SchemaLegacy  = "legacy"
)

// Options: blastxml 源选项。
type Options struct {
	// Schema: auto（默认）| current | legacy。
	Schema string `yaml:"schema"`
}

// Source 实现 contract.AlignmentSource。无状态，可并发复用。
type Source struct {
	schema string
}

var _ contract.AlignmentSource = (*Source)(nil)

// New 创建 BLAST XML 源。
func New(opts *Options) (*Source, error) {
	s := &Source{schema: SchemaAuto}
	if opts == nil {
		return s, nil
	}
	switch v := strings.ToLower(strings.TrimSpace(opts.Schema)); v {
	case "", SchemaAuto:
	case SchemaCurrent, SchemaLegacy:
		s.schema = v
	default:
		return nil, fmt.Errorf("blastxml: unknown schema %q: %w", opts.Schema, contract.ErrInvalidInput)
	}
	return s, nil
}

type xmlHsp struct {
	BitScore  string `xml:"Hsp_bit-score"`
	QueryFrom string `xml:"Hsp_query-from"`
	QueryTo   string `xml:"Hsp_query-to"`
	HitFrom   string `xml:"Hsp_hit-from"`
	HitTo     string `xml:"Hsp_hit-to"`
	QSeq      string `xml:"Hsp_qseq"`
	HSeq      string `xml:"Hsp_hseq"`
}

type xmlHit struct {
	Def  string   `xml:"Hit_def"`
	Len  string   `xml:"Hit_len"`
	Hsps []xmlHsp `xml:"Hit_hsps>Hsp"`
}

type xmlIteration struct {
	QueryDef string   `xml:"Iteration_query-def"`
	QueryLen string   `xml:"Iteration_query-len"`
	Hits     []xmlHit `xml:"Iteration_hits>Hit"`
}

// Queries 按文档顺序回调每个 query。XML 语法错误、空文档或数值字段非法均返回 ErrMalformedInput。
// 新布局下每解析完一个 <Iteration> 即回调；旧布局在文档结束时回调一次。
func (s *Source) Queries(ctx context.Context, fileID contract.FileID, r io.Reader, yield func(q contract.RawQuery) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dec := xml.NewDecoder(r)
	var (
		sawRoot    bool
		iterations int
		headDef    string
		headLen    string
		legacy     []xmlHit
	)
	malformed := func(err error) error {
		return fmt.Errorf("blastxml %s: %w: %v", fileID, contract.ErrMalformedInput, err)
	}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return malformed(err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawRoot = true
		switch se.Name.Local {
		case "BlastOutput_query-def":
			if err := dec.DecodeElement(&headDef, &se); err != nil {
				return malformed(err)
			}
		case "BlastOutput_query-len":
			if err := dec.DecodeElement(&headLen, &se); err != nil {
				return malformed(err)
			}
		case "Iteration":
			if s.schema == SchemaLegacy {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			var it xmlIteration
			if err := dec.DecodeElement(&it, &se); err != nil {
				return malformed(err)
			}
			iterations++
			def, qlen := it.QueryDef, it.QueryLen
			if def == "" {
				def = headDef
			}
			if qlen == "" {
				qlen = headLen
			}
			q, err := toQuery(def, qlen, it.Hits)
			if err != nil {
				return malformed(err)
			}
			if err := yield(q); err != nil {
				return err
			}
		case "Hit":
			if s.schema == SchemaCurrent {
				continue
			}
			var h xmlHit
			if err := dec.DecodeElement(&h, &se); err != nil {
				return malformed(err)
			}
			legacy = append(legacy, h)
		}
	}
	if !sawRoot {
		return malformed(errors.New("empty document"))
	}
	if iterations > 0 || s.schema == SchemaCurrent {
		return nil
	}
	if len(legacy) == 0 && headDef == "" {
		return nil
	}
	q, err := toQuery(headDef, headLen, legacy)
	if err != nil {
		return malformed(err)
	}
	return yield(q)
}

func toQuery(def, qlen string, hits []xmlHit) (contract.RawQuery, error) {
	n, err := atoi("query-len", qlen)
	if err != nil {
		return contract.RawQuery{}, err
	}
	q := contract.RawQuery{ID: firstToken(def), Length: n, Hits: make([]contract.RawHit, 0, len(hits))}
	for _, h := range hits {
		rh, err := toHit(h)
		if err != nil {
			return contract.RawQuery{}, fmt.Errorf("query %s: %w", q.ID, err)
		}
		q.Hits = append(q.Hits, rh)
	}
	return q, nil
}

func toHit(h xmlHit) (contract.RawHit, error) {
	n, err := atoi("Hit_len", h.Len)
	if err != nil {
		return contract.RawHit{}, err
	}
	rh := contract.RawHit{ID: firstToken(h.Def), Length: n, Segments: make([]contract.Segment, 0, len(h.Hsps))}
	for i, x := range h.Hsps {
		seg, err := toSegment(x)
		if err != nil {
			return contract.RawHit{}, fmt.Errorf("hit %s hsp %d: %w", rh.ID, i+1, err)
		}
		rh.Segments = append(rh.Segments, seg)
	}
	return rh, nil
}

func toSegment(x xmlHsp) (contract.Segment, error) {
	var (
		seg contract.Segment
		err error
	)
	if s := strings.TrimSpace(x.BitScore); s != "" {
		if seg.BitScore, err = strconv.ParseFloat(s, 64); err != nil {
			return seg, fmt.Errorf("Hsp_bit-score %q: %w", x.BitScore, err)
		}
		if math.IsNaN(seg.BitScore) || math.IsInf(seg.BitScore, 0) {
			return seg, fmt.Errorf("Hsp_bit-score %q: not finite", x.BitScore)
		}
	}
	fields := []struct {
		name string
		raw  string
		dst  *int
	}{
		{"Hsp_query-from", x.QueryFrom, &seg.QueryFrom},
		{"Hsp_query-to", x.QueryTo, &seg.QueryTo},
		{"Hsp_hit-from", x.HitFrom, &seg.HitFrom},
		{"Hsp_hit-to", x.HitTo, &seg.HitTo},
	}
	for _, f := range fields {
		if *f.dst, err = atoi(f.name, f.raw); err != nil {
			return seg, err
		}
	}
	// 负链比对给出 from>to；统一为 from<=to
	if seg.QueryFrom > seg.QueryTo {
		seg.QueryFrom, seg.QueryTo = seg.QueryTo, seg.QueryFrom
	}
	if seg.HitFrom > seg.HitTo {
		seg.HitFrom, seg.HitTo = seg.HitTo, seg.HitFrom
	}
	seg.QuerySeq = strings.TrimSpace(x.QSeq)
	seg.HitSeq = strings.TrimSpace(x.HSeq)
	if err := contract.ValidateSegment(seg); err != nil {
		return seg, err
	}
	return seg, nil
}

// atoi: 空串视为 0。
func atoi(name, s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", name, s, err)
	}
	return n, nil
}

func firstToken(def string) string {
	if f := strings.Fields(def); len(f) > 0 {
		return f[0]
	}
	return ""
}
