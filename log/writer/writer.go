package writer

import (
	"io"

	"github.com/pkg/errors"
)

// Writer 日志输出器接口
type Writer interface {
	io.Writer
	io.Closer
}

// Options 输出器配置
type Options struct {
	// 类型：console, file, multi
	Type string `cfg:"type" def:"console" validate:"oneof=console file multi"`

	Console ConsoleWriterOptions `cfg:"console"`
	File    FileWriterOptions    `cfg:"file"`

	// type=multi 时的子输出器
	Writers []*Options `cfg:"writers"`
}

// NewWriterWithOptions 根据类型创建输出器
func NewWriterWithOptions(options *Options) (Writer, error) {
	if options == nil {
		options = &Options{Type: "console"}
	}

	var w Writer
	var err error
	switch options.Type {
	case "", "console":
		w, err = NewConsoleWriterWithOptions(&options.Console)
	case "file":
		w, err = NewFileWriterWithOptions(&options.File)
	case "multi":
		w, err = NewMultiWriterWithOptions(options.Writers)
	default:
		return nil, errors.Errorf("unsupported writer type: %s", options.Type)
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}
