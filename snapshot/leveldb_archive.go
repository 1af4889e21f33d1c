package snapshot

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

type LevelDBArchiveOptions struct {
	// 数据库目录，不存在时自动创建
	DBPath string `cfg:"dbPath" def:"data/snapshots.leveldb"`

	// 块缓存容量，0 使用默认值
	BlockCacheCapacity int `cfg:"blockCacheCapacity"`

	// 压缩算法：default, none, snappy
	Compression string `cfg:"compression" validate:"omitempty,oneof=default none snappy"`

	// 写入时同步到磁盘
	Sync bool `cfg:"sync"`
}

// NewLevelDBArchiveWithOptions 基于 goleveldb 的归档
func NewLevelDBArchiveWithOptions(options *LevelDBArchiveOptions) (Archive, error) {
	if options.DBPath == "" {
		return nil, errors.New("dbPath is required")
	}
	if err := os.MkdirAll(options.DBPath, 0755); err != nil {
		return nil, errors.Wrapf(err, "os.MkdirAll failed. directory: %s", options.DBPath)
	}

	compression, err := leveldbParseCompression(options.Compression)
	if err != nil {
		return nil, err
	}
	db, err := leveldb.OpenFile(options.DBPath, &opt.Options{
		BlockCacheCapacity: options.BlockCacheCapacity,
		Compression:        compression,
	})
	if err != nil {
		return nil, errors.Wrap(err, "leveldb.OpenFile failed. path: "+options.DBPath)
	}

	return &kvArchive{backend: &leveldbBackend{db: db, sync: options.Sync}}, nil
}

func leveldbParseCompression(compression string) (opt.Compression, error) {
	m := map[string]opt.Compression{
		"default": opt.DefaultCompression,
		"none":    opt.NoCompression,
		"snappy":  opt.SnappyCompression,
	}
	if compression == "" {
		return opt.DefaultCompression, nil
	}
	c, ok := m[compression]
	if !ok {
		return 0, errors.Errorf("unknown compression: %s", compression)
	}
	return c, nil
}

type leveldbBackend struct {
	db   *leveldb.DB
	sync bool
}

func (b *leveldbBackend) write(pairs ...kvPair) error {
	batch := new(leveldb.Batch)
	for _, p := range pairs {
		batch.Put(p.key, p.val)
	}
	if err := b.db.Write(batch, &opt.WriteOptions{Sync: b.sync}); err != nil {
		return errors.Wrap(err, "leveldb.Write failed")
	}
	return nil
}

func (b *leveldbBackend) read(key []byte) ([]byte, bool, error) {
	val, err := b.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "leveldb.Get failed")
	}
	return val, true, nil
}

func (b *leveldbBackend) keys(prefix []byte) ([][]byte, error) {
	iter := b.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	var keys [][]byte
	for iter.Next() {
		keys = append(keys, bytes.Clone(iter.Key()))
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "leveldb iterate failed")
	}
	return keys, nil
}

func (b *leveldbBackend) close() error {
	return b.db.Close()
}
