package pipeline

import (
	"context"
	"fmt"
	"io"
	"testing"

	"orthoref/pkg/hsp"
)

func BenchmarkSummarize(b *testing.B) {
	dir := b.TempDir()
	var iters []string
	for i := 0; i < 500; i++ {
		var hits []string
		for j := 0; j < 10; j++ {
			hits = append(hits, hitXML(fmt.Sprintf("h%d", j), 400,
				hspXML(40, 1, 100, 1, 100), hspXML(35, 95, 180, 95, 180), hspXML(30, 200, 300, 200, 300)))
		}
		iters = append(iters, iterationXML(fmt.Sprintf("q%d", i), 400, hits...))
	}
	in := writeFile(b, dir, "bench.xml", blastDoc(iters...))
	set := SummarizeSettings{Inputs: []string{in}, Cutoff: 50, Mode: hsp.Linear, Concurrency: 4}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		comp := summarizeComponents(b, io.Discard)
		if _, err := Summarize(context.Background(), comp, set, nil); err != nil {
			b.Fatal(err)
		}
	}
}
