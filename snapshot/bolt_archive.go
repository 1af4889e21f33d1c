package snapshot

import (
	"bytes"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

type BoltArchiveOptions struct {
	// 数据库文件路径，目录不存在时自动创建
	DBPath string `cfg:"dbPath" def:"data/snapshots.bolt"`

	// 获取文件锁的等待时间，0 表示无限期等待
	Timeout time.Duration `cfg:"timeout" def:"1s"`

	// 不将 freelist 同步到磁盘
	NoFreelistSync bool `cfg:"noFreelistSync"`

	// array 或 hashmap，默认 array
	FreelistType string `cfg:"freelistType" validate:"omitempty,oneof=array hashmap"`

	NoSync bool `cfg:"noSync"`

	BucketName string `cfg:"bucketName" def:"snapshots"`
}

// NewBoltArchiveWithOptions 基于 bbolt 单文件数据库的归档
func NewBoltArchiveWithOptions(options *BoltArchiveOptions) (Archive, error) {
	if options.DBPath == "" {
		return nil, errors.New("dbPath is required")
	}
	directory := filepath.Dir(options.DBPath)
	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, errors.Wrapf(err, "os.MkdirAll failed. directory: %s", directory)
	}

	db, err := bolt.Open(options.DBPath, 0600, &bolt.Options{
		Timeout:        options.Timeout,
		NoFreelistSync: options.NoFreelistSync,
		FreelistType:   bolt.FreelistType(options.FreelistType),
		NoSync:         options.NoSync,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "bolt.Open failed. path: %s", options.DBPath)
	}

	bucketName := options.BucketName
	if bucketName == "" {
		bucketName = "snapshots"
	}
	backend := &boltBackend{db: db, bucketName: []byte(bucketName)}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(backend.bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create bucket failed")
	}

	return &kvArchive{backend: backend}, nil
}

type boltBackend struct {
	db         *bolt.DB
	bucketName []byte
}

func (b *boltBackend) write(pairs ...kvPair) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(b.bucketName)
		if bucket == nil {
			return errors.New("bucket not found")
		}
		for _, p := range pairs {
			if err := bucket.Put(p.key, p.val); err != nil {
				return errors.Wrap(err, "bucket.Put failed")
			}
		}
		return nil
	})
}

func (b *boltBackend) read(key []byte) ([]byte, bool, error) {
	var val []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(b.bucketName)
		if bucket == nil {
			return errors.New("bucket not found")
		}
		data := bucket.Get(key)
		if data == nil {
			return nil
		}
		// bbolt 的内存在事务结束后失效
		val = bytes.Clone(data)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return val, val != nil, nil
}

func (b *boltBackend) keys(prefix []byte) ([][]byte, error) {
	var keys [][]byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(b.bucketName)
		if bucket == nil {
			return errors.New("bucket not found")
		}
		c := bucket.Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			keys = append(keys, bytes.Clone(k))
		}
		return nil
	})
	return keys, err
}

func (b *boltBackend) close() error {
	return b.db.Close()
}
