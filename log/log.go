package log

import (
	"sync"

	"github.com/hatlonely/formlayout/log/logger"
	"github.com/pkg/errors"
)

var (
	defaultLogger logger.Logger
	mu            sync.RWMutex
)

func init() {
	// 默认向 stderr 输出 text 格式日志
	slog, err := logger.NewSLogWithOptions(&logger.SLogOptions{
		Level:  "info",
		Format: "text",
	})
	if err != nil {
		panic("failed to initialize default logger: " + err.Error())
	}
	defaultLogger = slog
}

func Default() logger.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// SetDefault 替换全局默认日志器，nil 忽略
func SetDefault(l logger.Logger) {
	if l == nil {
		return
	}
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
}

// NewLoggerWithOptions 创建日志器，options 为 nil 时返回默认日志器
func NewLoggerWithOptions(options *logger.SLogOptions) (logger.Logger, error) {
	if options == nil {
		return Default(), nil
	}
	l, err := logger.NewSLogWithOptions(options)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create logger")
	}
	return l, nil
}
