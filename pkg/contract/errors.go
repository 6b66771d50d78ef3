package contract

import "errors"

// 最小错误分类（用于上层策略判定与退出码映射）。
var (
	// ErrMalformedInput: 结构性解析失败（例如 BLAST XML 不合法），致命，终止运行。
	ErrMalformedInput = errors.New("malformed input")
	// ErrMalformedRecord: 单条表记录字段不足或数值非法；跳过该记录并继续。
	ErrMalformedRecord = errors.New("malformed record")
	// ErrInvalidInput: 调用参数非法（例如未知重叠模式、空物种名）。
	ErrInvalidInput = errors.New("invalid input")
	// ErrPathInvalid: 目标标识映射为无效/越界路径（例如绝对路径或 '..' 逃逸）。
	ErrPathInvalid = errors.New("path invalid")
	// ErrInvariantViolation: 领域不变量违例（通用哨兵）。
	ErrInvariantViolation = errors.New("invariant violation")
)
