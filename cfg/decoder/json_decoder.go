package decoder

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// JsonDecoder JSON 格式解码器
type JsonDecoder struct{}

func (j *JsonDecoder) Decode(data []byte) (map[string]any, error) {
	result := map[string]any{}
	if len(data) == 0 {
		return result, nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "failed to decode JSON")
	}
	return result, nil
}
