package cache

import (
	"context"
	"time"

	"github.com/coocood/freecache"
	"github.com/hatlonely/formlayout/form"
	"github.com/pkg/errors"
)

type FreeCacheOptions struct {
	// 缓存大小（字节），freecache 最小 512KB
	Size int `cfg:"size" def:"33554432"`
}

// FreeCache 基于 freecache 的进程内缓存，值以 msgpack 编码存储，不受 GC 影响
type FreeCache struct {
	cache     *freecache.Cache
	keyPrefix string
	ttl       time.Duration
}

func NewFreeCacheWithOptions(options *FreeCacheOptions, keyPrefix string, ttl time.Duration) (*FreeCache, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	return &FreeCache{
		cache:     freecache.NewCache(options.Size),
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}, nil
}

func (c *FreeCache) key(ref form.SectionRef) []byte {
	return []byte(c.keyPrefix + ref.String())
}

func (c *FreeCache) Get(ctx context.Context, ref form.SectionRef) ([]*form.Field, bool, error) {
	buf, err := c.cache.Get(c.key(ref))
	if errors.Is(err, freecache.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "freecache.Get failed")
	}
	fields, err := decode(buf)
	if err != nil {
		return nil, false, err
	}
	return fields, true, nil
}

func (c *FreeCache) Set(ctx context.Context, ref form.SectionRef, fields []*form.Field) error {
	buf, err := encode(fields)
	if err != nil {
		return err
	}
	if err := c.cache.Set(c.key(ref), buf, int(c.ttl.Seconds())); err != nil {
		return errors.Wrap(err, "freecache.Set failed")
	}
	return nil
}

func (c *FreeCache) Invalidate(ctx context.Context, refs ...form.SectionRef) error {
	for _, ref := range refs {
		c.cache.Del(c.key(ref))
	}
	return nil
}

func (c *FreeCache) Close() error {
	c.cache.Clear()
	return nil
}
