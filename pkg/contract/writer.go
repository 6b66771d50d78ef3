package contract

import (
	"context"
	"io"
)

// ArtifactID: 输出工件标识；"-" 约定为标准输出。
type ArtifactID = FileID

// StdoutArtifact: 约定的标准输出工件。
const StdoutArtifact ArtifactID = "-"

// Writer: 将结果以流式方式持久化到目标介质（文件系统/标准输出）。
// 约束：
//  1. 同一 ArtifactID 单写者；
//  2. 流式写入（O(1) 额外内存），按字节透传，不读取/修改业务内容；
//  3. ctx 取消需尽快返回；
//  4. 错误直接上抛（不做重试/回退）。
type Writer interface {
	Write(ctx context.Context, id ArtifactID, r io.Reader) error
}
