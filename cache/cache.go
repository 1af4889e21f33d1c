package cache

import (
	"context"
	"time"

	"github.com/hatlonely/formlayout/form"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// LayoutCache 分区布局缓存。重排事务提交后失效对应作用域
type LayoutCache interface {
	// Get 未命中时返回 ok=false
	Get(ctx context.Context, ref form.SectionRef) (fields []*form.Field, ok bool, err error)
	Set(ctx context.Context, ref form.SectionRef, fields []*form.Field) error
	Invalidate(ctx context.Context, refs ...form.SectionRef) error
	Close() error
}

// Options 缓存配置
type Options struct {
	// 类型：none, memory, freecache, redis
	Type string `cfg:"type" def:"memory" validate:"oneof=none memory freecache redis"`

	// 过期时间，0 表示不过期
	TTL time.Duration `cfg:"ttl" def:"5m"`

	// 键前缀
	KeyPrefix string `cfg:"keyPrefix" def:"formlayout:layout:"`

	FreeCache FreeCacheOptions `cfg:"freecache"`
	Redis     RedisOptions     `cfg:"redis"`
}

func NewLayoutCacheWithOptions(options *Options) (LayoutCache, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	switch options.Type {
	case "none":
		return NopCache{}, nil
	case "", "memory":
		return NewMemoryCache(options.TTL), nil
	case "freecache":
		return NewFreeCacheWithOptions(&options.FreeCache, options.KeyPrefix, options.TTL)
	case "redis":
		return NewRedisCacheWithOptions(&options.Redis, options.KeyPrefix, options.TTL)
	}
	return nil, errors.Errorf("unsupported cache type: %s", options.Type)
}

// ReadThrough 先查缓存，未命中时调用 load 并回填。缓存读写失败不影响结果
func ReadThrough(ctx context.Context, c LayoutCache, ref form.SectionRef, load func(ctx context.Context) ([]*form.Field, error)) ([]*form.Field, error) {
	if c == nil {
		return load(ctx)
	}
	if fields, ok, err := c.Get(ctx, ref); err == nil && ok {
		return fields, nil
	}
	fields, err := load(ctx)
	if err != nil {
		return nil, err
	}
	_ = c.Set(ctx, ref, fields)
	return fields, nil
}

func encode(fields []*form.Field) ([]byte, error) {
	buf, err := msgpack.Marshal(fields)
	if err != nil {
		return nil, errors.Wrap(err, "msgpack.Marshal failed")
	}
	return buf, nil
}

func decode(buf []byte) ([]*form.Field, error) {
	var fields []*form.Field
	if err := msgpack.Unmarshal(buf, &fields); err != nil {
		return nil, errors.Wrap(err, "msgpack.Unmarshal failed")
	}
	return fields, nil
}

// NopCache 不缓存
type NopCache struct{}

func (NopCache) Get(ctx context.Context, ref form.SectionRef) ([]*form.Field, bool, error) {
	return nil, false, nil
}

func (NopCache) Set(ctx context.Context, ref form.SectionRef, fields []*form.Field) error {
	return nil
}

func (NopCache) Invalidate(ctx context.Context, refs ...form.SectionRef) error {
	return nil
}

func (NopCache) Close() error {
	return nil
}
