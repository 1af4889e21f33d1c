package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hatlonely/formlayout/form"
)

type memoryEntry struct {
	fields    []*form.Field
	expiresAt time.Time
}

// MemoryCache 进程内缓存。存取时复制，调用方修改结果不会污染缓存
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[form.SectionRef]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[form.SectionRef]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(ctx context.Context, ref form.SectionRef) ([]*form.Field, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[ref]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, ref)
		c.mu.Unlock()
		return nil, false, nil
	}
	return clone(entry.fields), true, nil
}

func (c *MemoryCache) Set(ctx context.Context, ref form.SectionRef, fields []*form.Field) error {
	entry := memoryEntry{fields: clone(fields)}
	if c.ttl > 0 {
		entry.expiresAt = c.now().Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[ref] = entry
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Invalidate(ctx context.Context, refs ...form.SectionRef) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ref := range refs {
		delete(c.entries, ref)
	}
	return nil
}

func (c *MemoryCache) Close() error {
	return nil
}

func clone(fields []*form.Field) []*form.Field {
	out := make([]*form.Field, 0, len(fields))
	for _, f := range fields {
		cp := *f
		out = append(out, &cp)
	}
	return out
}
