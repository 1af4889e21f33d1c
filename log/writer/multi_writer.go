package writer

import (
	"github.com/pkg/errors"
)

// MultiWriter 多输出器
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriterWithOptions 创建多输出器
func NewMultiWriterWithOptions(options []*Options) (*MultiWriter, error) {
	if len(options) == 0 {
		return nil, errors.New("at least one writer is required")
	}

	writers := make([]Writer, 0, len(options))
	for i, opt := range options {
		if opt != nil && opt.Type == "multi" {
			return nil, errors.Errorf("writer %d: nested multi writer is not supported", i)
		}
		w, err := NewWriterWithOptions(opt)
		if err != nil {
			for _, created := range writers {
				_ = created.Close()
			}
			return nil, errors.WithMessagef(err, "failed to create writer %d", i)
		}
		writers = append(writers, w)
	}

	return &MultiWriter{writers: writers}, nil
}

// NewMultiWriter 从已有的输出器创建多输出器
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write 写入所有输出器，任一失败立即返回
func (m *MultiWriter) Write(p []byte) (n int, err error) {
	for i, w := range m.writers {
		if n, err = w.Write(p); err != nil {
			return n, errors.Wrapf(err, "writer %d failed", i)
		}
	}
	return len(p), nil
}

func (m *MultiWriter) Close() error {
	var lastErr error
	for i, w := range m.writers {
		if err := w.Close(); err != nil {
			lastErr = errors.Wrapf(err, "failed to close writer %d", i)
		}
	}
	return lastErr
}
