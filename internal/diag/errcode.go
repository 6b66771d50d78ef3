package diag

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"orthoref/pkg/contract"
)

// Code: 错误分类代码，仅用于日志与指标汇总，与退出码解耦。
type Code string

const (
	CodeUnknown   Code = "unknown"
	CodeMalformed Code = "malformed"
	CodeRecord    Code = "record"
	CodeInvariant Code = "invariant"
	CodeIO        Code = "io"
	CodeCancel    Code = "cancel"
)

// Classify 仅依赖哨兵错误与标准库错误类型，不做字符串匹配。
func Classify(err error) Code {
	switch {
	case err == nil:
		return CodeUnknown
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return CodeCancel
	case errors.Is(err, contract.ErrMalformedInput):
		return CodeMalformed
	case errors.Is(err, contract.ErrMalformedRecord):
		return CodeRecord
	case errors.Is(err, contract.ErrInvariantViolation),
		errors.Is(err, contract.ErrInvalidInput),
		errors.Is(err, contract.ErrPathInvalid):
		return CodeInvariant
	}
	var perr *fs.PathError
	if errors.As(err, &perr) || errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
		return CodeIO
	}
	return CodeUnknown
}
