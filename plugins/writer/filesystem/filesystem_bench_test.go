package filesystem

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"orthoref/pkg/contract"
)

// BenchmarkWrite 衡量不同报告尺寸下的原子写入开销。
func BenchmarkWrite(b *testing.B) {
	for _, sz := range []int{4 << 10, 4 << 20} {
		b.Run(fmt.Sprintf("size=%d", sz), func(b *testing.B) {
			data := bytes.Repeat([]byte("q1\th1\t60\n"), sz/9)
			w, err := New(nil)
			if err != nil {
				b.Fatalf("创建 Writer 失败: %v", err)
			}
			id := contract.ArtifactID(filepath.Join(b.TempDir(), "summary.tsv"))
			ctx := context.Background()
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := w.Write(ctx, id, bytes.NewReader(data)); err != nil {
					b.Fatalf("写入失败: %v", err)
				}
			}
		})
	}
}
