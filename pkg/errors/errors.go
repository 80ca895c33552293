package errors

import "errors"

// ErrDuplicate 唯一约束冲突：记录已存在
var ErrDuplicate = errors.New("记录已存在")
