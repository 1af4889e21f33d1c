package decoder

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

// IniDecoder INI 格式解码器。分组名中的点表示嵌套，[store.sqlite] 对应 store.sqlite
type IniDecoder struct {
	// AllowShadows 允许重复键（解码为数组）
	AllowShadows bool
}

func NewIniDecoder() *IniDecoder {
	return &IniDecoder{AllowShadows: true}
}

func (i *IniDecoder) Decode(data []byte) (map[string]any, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		AllowShadows:             i.AllowShadows,
		SpaceBeforeInlineComment: true,
	}, data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode INI")
	}

	result := map[string]any{}
	for _, section := range file.Sections() {
		target := result
		if name := section.Name(); name != ini.DefaultSection {
			for _, part := range strings.Split(name, ".") {
				child, ok := target[part].(map[string]any)
				if !ok {
					child = map[string]any{}
					target[part] = child
				}
				target = child
			}
		}
		for _, key := range section.Keys() {
			target[key.Name()] = i.parseValue(key)
		}
	}
	return result, nil
}

func (i *IniDecoder) parseValue(key *ini.Key) any {
	if i.AllowShadows {
		values := key.ValueWithShadows()
		if len(values) > 1 {
			out := make([]any, 0, len(values))
			for _, v := range values {
				out = append(out, parseScalar(v))
			}
			return out
		}
	}
	return parseScalar(key.String())
}

// parseScalar 尝试把字符串转换为布尔值或数字
func parseScalar(value string) any {
	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}
	if v, err := strconv.ParseInt(value, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(value, 64); err == nil {
		return v
	}
	return value
}
