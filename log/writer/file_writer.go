package writer

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileWriterOptions 文件输出配置
type FileWriterOptions struct {
	// 文件路径
	Path string `cfg:"path"`
	// 最大文件大小（MB），0 表示使用 lumberjack 默认的 100MB
	MaxSize int `cfg:"maxSize" def:"100"`
	// 最大备份数量，0 表示不限制
	MaxBackups int `cfg:"maxBackups"`
	// 最大保留天数，0 表示不限制
	MaxAge int `cfg:"maxAge"`
	// 是否压缩旧文件
	Compress bool `cfg:"compress"`
	// 备份文件名使用本地时间
	LocalTime bool `cfg:"localTime"`
}

// FileWriter 按大小轮转的文件输出器
type FileWriter struct {
	logger *lumberjack.Logger
}

// NewFileWriterWithOptions 创建文件输出器
func NewFileWriterWithOptions(options *FileWriterOptions) (*FileWriter, error) {
	if options == nil || options.Path == "" {
		return nil, errors.New("file path is required")
	}

	dir := filepath.Dir(options.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create directory %s", dir)
	}

	return &FileWriter{
		logger: &lumberjack.Logger{
			Filename:   options.Path,
			MaxSize:    options.MaxSize,
			MaxBackups: options.MaxBackups,
			MaxAge:     options.MaxAge,
			Compress:   options.Compress,
			LocalTime:  options.LocalTime,
		},
	}, nil
}

func (f *FileWriter) Write(p []byte) (n int, err error) {
	return f.logger.Write(p)
}

// Rotate 立即切分当前文件
func (f *FileWriter) Rotate() error {
	return f.logger.Rotate()
}

func (f *FileWriter) Close() error {
	return f.logger.Close()
}
