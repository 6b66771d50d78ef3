package contract

import (
	"context"
	"io"
)

// AlignmentSource: 将某种比对结果格式归一为中性的 RawQuery 序列。
// 约束：
//  1. 按输入顺序回调 query；hit 与 segment 保持原始顺序；
//  2. 多种格式变体（新旧 schema）在实现内部归一，下游不感知来源格式；
//  3. 结构性错误返回包裹 ErrMalformedInput 的错误；
//  4. 无内部并发。
type AlignmentSource interface {
	Queries(ctx context.Context, fileID FileID, r io.Reader, yield func(q RawQuery) error) error
}
