package logger

import (
	"context"
)

// Logger 日志接口
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)

	// 带字段的日志器
	With(args ...any) Logger
	WithGroup(name string) Logger
}

// Nop 丢弃所有日志
type Nop struct{}

func (Nop) Debug(msg string, args ...any)                             {}
func (Nop) Info(msg string, args ...any)                              {}
func (Nop) Warn(msg string, args ...any)                              {}
func (Nop) Error(msg string, args ...any)                             {}
func (Nop) DebugContext(ctx context.Context, msg string, args ...any) {}
func (Nop) InfoContext(ctx context.Context, msg string, args ...any)  {}
func (Nop) WarnContext(ctx context.Context, msg string, args ...any)  {}
func (Nop) ErrorContext(ctx context.Context, msg string, args ...any) {}
func (n Nop) With(args ...any) Logger                                 { return n }
func (n Nop) WithGroup(name string) Logger                            { return n }
