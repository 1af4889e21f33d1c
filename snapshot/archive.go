package snapshot

import (
	"bytes"
	"context"
	"slices"
	"strings"

	"github.com/hatlonely/formlayout/form"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// Archive 快照归档
type Archive interface {
	Put(ctx context.Context, s *Snapshot) error
	// Get 不存在时返回 form.NotFoundError
	Get(ctx context.Context, id string) (*Snapshot, error)
	// List 返回一个作用域下的全部快照，最新的在前
	List(ctx context.Context, ref form.SectionRef) ([]*Snapshot, error)
	Close() error
}

type Options struct {
	// 类型：none, file, bbolt, leveldb, pebble
	Type string `cfg:"type" def:"none" validate:"oneof=none file bbolt leveldb pebble"`

	ID IDOptions `cfg:"id"`

	File    FileArchiveOptions    `cfg:"file"`
	BoltDB  BoltArchiveOptions    `cfg:"bbolt"`
	LevelDB LevelDBArchiveOptions `cfg:"leveldb"`
	Pebble  PebbleArchiveOptions  `cfg:"pebble"`
}

// NewArchiveWithOptions 类型为 none 时返回 nil
func NewArchiveWithOptions(options *Options) (Archive, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	switch options.Type {
	case "", "none":
		return nil, nil
	case "file":
		return NewFileArchiveWithOptions(&options.File)
	case "bbolt":
		return NewBoltArchiveWithOptions(&options.BoltDB)
	case "leveldb":
		return NewLevelDBArchiveWithOptions(&options.LevelDB)
	case "pebble":
		return NewPebbleArchiveWithOptions(&options.Pebble)
	}
	return nil, errors.Errorf("unsupported archive type: %s", options.Type)
}

// newestFirst 按导出时间倒序，同一秒内按 ID 倒序
func newestFirst(snapshots []*Snapshot) {
	slices.SortStableFunc(snapshots, func(a, b *Snapshot) int {
		if c := b.ExportedAt.Compare(a.ExportedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
}

func notFound(id string) error {
	return &form.NotFoundError{Entity: "snapshot", Key: id}
}

type kvPair struct {
	key []byte
	val []byte
}

// kvBackend 有序键值存储，write 需要原子写入全部键值对
type kvBackend interface {
	write(pairs ...kvPair) error
	// read 不存在时返回 ok=false
	read(key []byte) (val []byte, ok bool, err error)
	// keys 按字典序返回带 prefix 的全部键
	keys(prefix []byte) ([][]byte, error)
	close() error
}

// kvArchive 键布局：
//
//	snapshot/<id>                        -> msgpack(Snapshot)
//	scope/<namespace>/<section>/<id>     -> 空
type kvArchive struct {
	backend kvBackend
}

func dataKey(id string) []byte {
	return []byte("snapshot/" + id)
}

func scopePrefix(ref form.SectionRef) []byte {
	return []byte("scope/" + string(ref.Namespace) + "/" + ref.Section + "/")
}

func (a *kvArchive) Put(ctx context.Context, s *Snapshot) error {
	if s.ID == "" {
		return &form.InvalidArgumentError{Field: "id", Reason: "empty snapshot id"}
	}
	buf, err := msgpack.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "msgpack.Marshal failed")
	}
	return a.backend.write(
		kvPair{key: dataKey(s.ID), val: buf},
		kvPair{key: append(scopePrefix(s.Ref()), s.ID...), val: []byte{}},
	)
}

func (a *kvArchive) Get(ctx context.Context, id string) (*Snapshot, error) {
	buf, ok, err := a.backend.read(dataKey(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound(id)
	}
	var s Snapshot
	if err := msgpack.Unmarshal(buf, &s); err != nil {
		return nil, errors.Wrap(err, "msgpack.Unmarshal failed")
	}
	return &s, nil
}

func (a *kvArchive) List(ctx context.Context, ref form.SectionRef) ([]*Snapshot, error) {
	prefix := scopePrefix(ref)
	keys, err := a.backend.keys(prefix)
	if err != nil {
		return nil, err
	}

	snapshots := make([]*Snapshot, 0, len(keys))
	for _, key := range keys {
		id := string(bytes.TrimPrefix(key, prefix))
		s, err := a.Get(ctx, id)
		if err != nil {
			return nil, errors.WithMessagef(err, "load snapshot %s", id)
		}
		snapshots = append(snapshots, s)
	}
	newestFirst(snapshots)
	return snapshots, nil
}

func (a *kvArchive) Close() error {
	return a.backend.close()
}
