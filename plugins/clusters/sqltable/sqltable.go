// Package sqltable 读取 InParanoid 的 SQL 表导出（sqltable.*）：
//
//	cluster_id  bitscore  species[.ext]  ortholog_score  protein_id  bootstrap...
//
// 同一 cluster_id 的连续行组成一个簇；不匹配的行被跳过并计数。
package sqltable

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"orthoref/pkg/contract"
)

var lineRe = regexp.MustCompile(`^(\d+)\s+(\d+)\s+([A-Za-z]+)\.?\w*\s+(\S+)\s+(\S+)\s+.*`)

// Options: 保留为空，拒绝未知字段。
type Options struct{}

// Loader 实现 contract.ClusterLoader。
type Loader struct{}

var _ contract.ClusterLoader = (*Loader)(nil)

// New 创建 Loader。
func New(*Options) *Loader { return &Loader{} }

// Result: Parse 的结果。
type Result struct {
	Clusters []contract.Cluster
	// Unmatched: 非空但格式不符而被跳过的行数。
	Unmatched int
}

// Load 解析并按物种划分；不匹配的行计入 Skipped。
func (l *Loader) Load(ctx context.Context, fileID contract.FileID, r io.Reader, speciesA, speciesB string) (contract.ClusterSet, error) {
	res, err := l.parse(ctx, fileID, r)
	if err != nil {
		return contract.ClusterSet{}, err
	}
	set := contract.Partition(res.Clusters, speciesA, speciesB)
	set.Skipped += res.Unmatched
	return set, nil
}

// Parse 按行序组装簇；不匹配的行被忽略。
func (l *Loader) Parse(ctx context.Context, fileID contract.FileID, r io.Reader) ([]contract.Cluster, error) {
	res, err := l.parse(ctx, fileID, r)
	return res.Clusters, err
}

// parse: 物种名取扩展名前的字母部分（"HS.fa" → "HS"）。
func (l *Loader) parse(ctx context.Context, fileID contract.FileID, r io.Reader) (Result, error) {
	var (
		res  Result
		cur  *contract.Cluster
		line int
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line++
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		m := lineRe.FindStringSubmatch(text)
		if m == nil {
			res.Unmatched++
			continue
		}
		id := trimInt(m[1])
		if cur == nil || cur.ID != id {
			res.Clusters = append(res.Clusters, contract.Cluster{ID: id, BitScore: trimInt(m[2])})
			cur = &res.Clusters[len(res.Clusters)-1]
		}
		cur.Genes = append(cur.Genes, contract.Gene{Species: m[3], Score: m[4], ID: m[5]})
	}
	if err := sc.Err(); err != nil {
		return Result{}, fmt.Errorf("sqltable %s:%d: %w", fileID, line+1, err)
	}
	return res, ctx.Err()
}

// trimInt 去掉前导零，与整数格式化一致。
func trimInt(s string) string {
	t := strings.TrimLeft(s, "0")
	if t == "" {
		return "0"
	}
	return t
}
