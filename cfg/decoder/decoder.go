package decoder

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Decoder 把原始配置数据解码为嵌套的 map
type Decoder interface {
	Decode(data []byte) (map[string]any, error)
}

// NewDecoder 根据格式名创建解码器：json, yaml, toml, ini
func NewDecoder(format string) (Decoder, error) {
	switch strings.ToLower(format) {
	case "json":
		return &JsonDecoder{}, nil
	case "yaml", "yml":
		return &YamlDecoder{}, nil
	case "toml":
		return &TomlDecoder{}, nil
	case "ini":
		return NewIniDecoder(), nil
	}
	return nil, errors.Errorf("unsupported config format: %s", format)
}

// NewDecoderByPath 根据文件扩展名创建解码器
func NewDecoderByPath(path string) (Decoder, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return nil, errors.Errorf("cannot infer config format from %s", path)
	}
	return NewDecoder(ext)
}
