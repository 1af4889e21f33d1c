package cache

import (
	"context"
	"time"

	"github.com/hatlonely/formlayout/form"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type RedisOptions struct {
	// host:port 地址
	Endpoint string `cfg:"endpoint" def:"localhost:6379"`

	Username string `cfg:"username"`
	Password string `cfg:"password"`
	DB       int    `cfg:"db"`

	DialTimeout  time.Duration `cfg:"dialTimeout" def:"5s"`
	ReadTimeout  time.Duration `cfg:"readTimeout" def:"3s"`
	WriteTimeout time.Duration `cfg:"writeTimeout" def:"3s"`
	PoolSize     int           `cfg:"poolSize" def:"10"`
}

// RedisCache 多实例共享的布局缓存
type RedisCache struct {
	client    redis.Cmdable
	closer    func() error
	keyPrefix string
	ttl       time.Duration
}

func NewRedisCacheWithOptions(options *RedisOptions, keyPrefix string, ttl time.Duration) (*RedisCache, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         options.Endpoint,
		Username:     options.Username,
		Password:     options.Password,
		DB:           options.DB,
		DialTimeout:  options.DialTimeout,
		ReadTimeout:  options.ReadTimeout,
		WriteTimeout: options.WriteTimeout,
		PoolSize:     options.PoolSize,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "redis.client.Ping failed")
	}

	return &RedisCache{
		client:    client,
		closer:    client.Close,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}, nil
}

func (c *RedisCache) key(ref form.SectionRef) string {
	return c.keyPrefix + ref.String()
}

func (c *RedisCache) Get(ctx context.Context, ref form.SectionRef) ([]*form.Field, bool, error) {
	buf, err := c.client.Get(ctx, c.key(ref)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "redis.Get failed")
	}
	fields, err := decode(buf)
	if err != nil {
		return nil, false, err
	}
	return fields, true, nil
}

func (c *RedisCache) Set(ctx context.Context, ref form.SectionRef, fields []*form.Field) error {
	buf, err := encode(fields)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.key(ref), buf, c.ttl).Err(); err != nil {
		return errors.Wrap(err, "redis.Set failed")
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, refs ...form.SectionRef) error {
	if len(refs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(refs))
	for _, ref := range refs {
		keys = append(keys, c.key(ref))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(err, "redis.Del failed")
	}
	return nil
}

func (c *RedisCache) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}
