// Package inparanoidxml 读写 InParanoid 簇 XML：
//
//	<INPARANOID>
//	  <CLUSTER CLUSTERNO="1" BITSCORE="1523">
//	    <GENE GENEID="..." PROTID="..." SCORE="1.000" SPECIES="HS"/>
//	  </CLUSTER>
//	</INPARANOID>
package inparanoidxml

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"orthoref/pkg/contract"
)

// Options: 读取选项。
type Options struct {
	// PreferGeneID: 成员 ID 优先取 GENEID，缺失时回退 PROTID。默认优先 PROTID。
	PreferGeneID bool `yaml:"prefer_gene_id"`
}

// Loader 实现 contract.ClusterLoader。
type Loader struct {
	preferGeneID bool
}

var _ contract.ClusterLoader = (*Loader)(nil)

// New 创建 Loader。
func New(opts *Options) *Loader {
	l := &Loader{}
	if opts != nil {
		l.preferGeneID = opts.PreferGeneID
	}
	return l
}

type xmlGene struct {
	GeneID  string `xml:"GENEID,attr,omitempty"`
	ProtID  string `xml:"PROTID,attr,omitempty"`
	Score   string `xml:"SCORE,attr,omitempty"`
	Species string `xml:"SPECIES,attr"`
}

type xmlCluster struct {
	XMLName  xml.Name  `xml:"CLUSTER"`
	No       string    `xml:"CLUSTERNO,attr"`
	BitScore string    `xml:"BITSCORE,attr,omitempty"`
	Genes    []xmlGene `xml:"GENE"`
}

type xmlDoc struct {
	XMLName  xml.Name     `xml:"INPARANOID"`
	Clusters []xmlCluster `xml:"CLUSTER"`
}

// Load 解析全部簇并按物种划分。
func (l *Loader) Load(ctx context.Context, fileID contract.FileID, r io.Reader, speciesA, speciesB string) (contract.ClusterSet, error) {
	clusters, err := l.Parse(ctx, fileID, r)
	if err != nil {
		return contract.ClusterSet{}, err
	}
	return contract.Partition(clusters, speciesA, speciesB), nil
}

// Parse 按文档顺序返回任意深度的 <CLUSTER>（只取其直接子元素 <GENE>）。
func (l *Loader) Parse(ctx context.Context, fileID contract.FileID, r io.Reader) ([]contract.Cluster, error) {
	dec := xml.NewDecoder(r)
	var (
		out     []contract.Cluster
		sawRoot bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cluster xml %s: %w: %v", fileID, contract.ErrMalformedInput, err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawRoot = true
		if se.Name.Local != "CLUSTER" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var xc xmlCluster
		if err := dec.DecodeElement(&xc, &se); err != nil {
			return nil, fmt.Errorf("cluster xml %s: %w: %v", fileID, contract.ErrMalformedInput, err)
		}
		out = append(out, l.toCluster(xc))
	}
	if !sawRoot {
		return nil, fmt.Errorf("cluster xml %s: %w: empty document", fileID, contract.ErrMalformedInput)
	}
	return out, nil
}

func (l *Loader) toCluster(xc xmlCluster) contract.Cluster {
	c := contract.Cluster{ID: xc.No, BitScore: xc.BitScore, Genes: make([]contract.Gene, 0, len(xc.Genes))}
	for _, g := range xc.Genes {
		first, second := g.ProtID, g.GeneID
		if l.preferGeneID {
			first, second = second, first
		}
		id := first
		if id == "" {
			id = second
		}
		c.Genes = append(c.Genes, contract.Gene{Species: g.Species, ID: id, Score: g.Score})
	}
	return c
}

// Encoder 实现 contract.ClusterEncoder。
type Encoder struct{}

var _ contract.ClusterEncoder = Encoder{}

// Encode 渲染完整文档。
func (Encoder) Encode(ctx context.Context, clusters []contract.Cluster) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := WriteDocument(&buf, clusters); err != nil {
		return nil, err
	}
	return &buf, nil
}

// WriteDocument 以两空格缩进写出完整文档（含 XML 声明）。GENEID 与 PROTID 均取成员 ID。
func WriteDocument(w io.Writer, clusters []contract.Cluster) error {
	doc := xmlDoc{Clusters: make([]xmlCluster, 0, len(clusters))}
	for _, c := range clusters {
		xc := xmlCluster{No: c.ID, BitScore: c.BitScore, Genes: make([]xmlGene, 0, len(c.Genes))}
		for _, g := range c.Genes {
			xc.Genes = append(xc.Genes, xmlGene{GeneID: g.ID, ProtID: g.ID, Score: g.Score, Species: g.Species})
		}
		doc.Clusters = append(doc.Clusters, xc)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
