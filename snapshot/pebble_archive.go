package snapshot

import (
	"bytes"
	"os"

	"github.com/cockroachdb/fifo"
	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
)

type PebbleArchiveOptions struct {
	// 数据库目录，不存在时自动创建
	DBPath string `cfg:"dbPath" def:"data/snapshots.pebble"`

	// 写入时不同步到磁盘
	SetWithoutSync bool `cfg:"setWithoutSync"`

	// 块缓存大小，0 使用默认的 8MB
	CacheSize int64 `cfg:"cacheSize"`

	// 并行从文件系统加载块的上限，0 表示不限制
	LoadBlockSemaCapacity int64 `cfg:"loadBlockSemaCapacity" validate:"min=0"`
}

// NewPebbleArchiveWithOptions 基于 pebble 的归档
func NewPebbleArchiveWithOptions(options *PebbleArchiveOptions) (Archive, error) {
	if options.DBPath == "" {
		return nil, errors.New("dbPath is required")
	}
	if err := os.MkdirAll(options.DBPath, 0755); err != nil {
		return nil, errors.Wrapf(err, "os.MkdirAll failed. directory: %s", options.DBPath)
	}

	pebbleOptions := &pebble.Options{}
	if options.CacheSize > 0 {
		cache := pebble.NewCache(options.CacheSize)
		defer cache.Unref()
		pebbleOptions.Cache = cache
	}
	if options.LoadBlockSemaCapacity > 0 {
		pebbleOptions.LoadBlockSema = fifo.NewSemaphore(options.LoadBlockSemaCapacity)
	}

	db, err := pebble.Open(options.DBPath, pebbleOptions)
	if err != nil {
		return nil, errors.Wrap(err, "pebble.Open failed")
	}

	writeOptions := pebble.Sync
	if options.SetWithoutSync {
		writeOptions = pebble.NoSync
	}
	return &kvArchive{backend: &pebbleBackend{db: db, writeOptions: writeOptions}}, nil
}

type pebbleBackend struct {
	db           *pebble.DB
	writeOptions *pebble.WriteOptions
}

func (b *pebbleBackend) write(pairs ...kvPair) error {
	batch := b.db.NewBatch()
	defer batch.Close()
	for _, p := range pairs {
		if err := batch.Set(p.key, p.val, nil); err != nil {
			return errors.Wrap(err, "batch.Set failed")
		}
	}
	if err := batch.Commit(b.writeOptions); err != nil {
		return errors.Wrap(err, "batch.Commit failed")
	}
	return nil
}

func (b *pebbleBackend) read(key []byte) ([]byte, bool, error) {
	val, closer, err := b.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "pebble.Get failed")
	}
	defer closer.Close()
	return bytes.Clone(val), true, nil
}

func (b *pebbleBackend) keys(prefix []byte) ([][]byte, error) {
	iter, err := b.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return nil, errors.Wrap(err, "pebble.NewIter failed")
	}

	var keys [][]byte
	for iter.First(); iter.Valid(); iter.Next() {
		keys = append(keys, bytes.Clone(iter.Key()))
	}
	if err := iter.Close(); err != nil {
		return nil, errors.Wrap(err, "iter.Close failed")
	}
	return keys, nil
}

func (b *pebbleBackend) close() error {
	return b.db.Close()
}

// upperBound 前缀的最小上界，前缀全为 0xff 时返回 nil
func upperBound(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
