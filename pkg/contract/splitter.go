package contract

import (
	"context"
	"io"
)

// Splitter: 将比对汇总表字节流拆分为 SummaryRow 序列。
// 约束：
// 1) 按行序回调，不重排；
// 2) 坏记录以 err（包裹 ErrMalformedRecord）回调，由调用方记录并跳过；
// 3) yield 返回错误时立即中止并上抛；
// 4) 无内部并发、幂等。
type Splitter interface {
	Split(ctx context.Context, fileID FileID, r io.Reader, yield func(row SummaryRow, err error) error) error
}
