package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/hatlonely/formlayout/form"
	"github.com/pkg/errors"
)

type FileArchiveOptions struct {
	// 快照目录，每个快照一个 <id>.json 文件
	Directory string `cfg:"directory" def:"data/snapshots"`
}

// FileArchive 以目录保存 JSON 快照
type FileArchive struct {
	directory string
}

func NewFileArchiveWithOptions(options *FileArchiveOptions) (*FileArchive, error) {
	if options.Directory == "" {
		return nil, errors.New("directory is required")
	}
	if err := os.MkdirAll(options.Directory, 0755); err != nil {
		return nil, errors.Wrapf(err, "os.MkdirAll failed. directory: %s", options.Directory)
	}
	return &FileArchive{directory: options.Directory}, nil
}

func (a *FileArchive) path(id string) string {
	return filepath.Join(a.directory, id+".json")
}

func (a *FileArchive) Put(ctx context.Context, s *Snapshot) error {
	if s.ID == "" || strings.ContainsAny(s.ID, `/\.`) {
		return &form.InvalidArgumentError{Field: "id", Reason: "invalid snapshot id " + s.ID}
	}
	buf, err := Encode(s, FormatJSON)
	if err != nil {
		return err
	}

	// 先写临时文件再改名，List 不会读到写了一半的文件
	tmp := a.path(s.ID) + ".tmp"
	if err := os.WriteFile(tmp, buf, 0644); err != nil {
		return errors.Wrapf(err, "os.WriteFile failed. path: %s", tmp)
	}
	if err := os.Rename(tmp, a.path(s.ID)); err != nil {
		return errors.Wrapf(err, "os.Rename failed. path: %s", tmp)
	}
	return nil
}

func (a *FileArchive) Get(ctx context.Context, id string) (*Snapshot, error) {
	if id == "" || strings.ContainsAny(id, `/\.`) {
		return nil, notFound(id)
	}
	buf, err := os.ReadFile(a.path(id))
	if os.IsNotExist(err) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "os.ReadFile failed. path: %s", a.path(id))
	}
	return Decode(buf, FormatJSON)
}

func (a *FileArchive) List(ctx context.Context, ref form.SectionRef) ([]*Snapshot, error) {
	entries, err := os.ReadDir(a.directory)
	if err != nil {
		return nil, errors.Wrapf(err, "os.ReadDir failed. directory: %s", a.directory)
	}

	snapshots := []*Snapshot{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		s, err := a.Get(ctx, strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			return nil, errors.WithMessagef(err, "load snapshot %s", entry.Name())
		}
		if s.Ref() == ref {
			snapshots = append(snapshots, s)
		}
	}
	newestFirst(snapshots)
	return snapshots, nil
}

func (a *FileArchive) Close() error {
	return nil
}
