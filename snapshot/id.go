package snapshot

import (
	"encoding/hex"

	"github.com/google/uuid"
)

type IDOptions struct {
	// uuid 版本：v4, v6, v7。v6 和 v7 按时间递增
	Version string `cfg:"version" def:"v7" validate:"oneof=v4 v6 v7"`

	// 是否包含中划线连字符，默认不包含
	WithHyphens bool `cfg:"withHyphens"`
}

// IDGenerator 生成快照 ID
type IDGenerator struct {
	version     string
	withHyphens bool
}

func NewIDGeneratorWithOptions(options *IDOptions) *IDGenerator {
	if options == nil {
		options = &IDOptions{}
	}
	version := options.Version
	if version == "" {
		version = "v7"
	}
	return &IDGenerator{version: version, withHyphens: options.WithHyphens}
}

func (g *IDGenerator) Generate() string {
	var u uuid.UUID
	switch g.version {
	case "v4":
		u = uuid.New()
	case "v6":
		u = uuid.Must(uuid.NewV6())
	default:
		u = uuid.Must(uuid.NewV7())
	}

	if g.withHyphens {
		return u.String()
	}
	return hex.EncodeToString(u[:])
}
