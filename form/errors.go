package form

import (
	"fmt"

	"github.com/pkg/errors"
)

// NotFoundError 分区、字段或选项不存在
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}

// InvalidPositionError 目标位置超出合法区间，或字段状态不允许该操作
type InvalidPositionError struct {
	Op       string
	Field    string
	Position int
	Min      int
	Max      int
	Reason   string
}

func (e *InvalidPositionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: invalid position %d for %s: %s", e.Op, e.Position, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: invalid position %d for %s, expected [%d, %d]", e.Op, e.Position, e.Field, e.Min, e.Max)
}

// DuplicateNameError 名称冲突
type DuplicateNameError struct {
	Entity string
	Name   string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Entity, e.Name)
}

// TransactionError 事务提交失败或被中止，所有修改已回滚
type TransactionError struct {
	Op    string
	Cause error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Op, e.Cause)
}

func (e *TransactionError) Unwrap() error {
	return e.Cause
}

// InvalidArgumentError 输入不合法
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsInvalidPosition(err error) bool {
	var e *InvalidPositionError
	return errors.As(err, &e)
}

func IsDuplicateName(err error) bool {
	var e *DuplicateNameError
	return errors.As(err, &e)
}

func IsTransaction(err error) bool {
	var e *TransactionError
	return errors.As(err, &e)
}

func IsInvalidArgument(err error) bool {
	var e *InvalidArgumentError
	return errors.As(err, &e)
}

// IsDomain 是否为领域错误。领域错误在事务中直接透传，不包装成 TransactionError
func IsDomain(err error) bool {
	return IsNotFound(err) || IsInvalidPosition(err) || IsDuplicateName(err) || IsInvalidArgument(err)
}
