package snapshot

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hatlonely/formlayout/form"
	. "github.com/smartystreets/goconvey/convey"
)

func TestArchive(t *testing.T) {
	ctx := context.Background()

	backends := map[string]func(dir string) (Archive, error){
		"file": func(dir string) (Archive, error) {
			return NewArchiveWithOptions(&Options{Type: "file", File: FileArchiveOptions{Directory: dir}})
		},
		"bbolt": func(dir string) (Archive, error) {
			return NewArchiveWithOptions(&Options{Type: "bbolt", BoltDB: BoltArchiveOptions{DBPath: filepath.Join(dir, "a", "snapshots.bolt"), Timeout: time.Second}})
		},
		"leveldb": func(dir string) (Archive, error) {
			return NewArchiveWithOptions(&Options{Type: "leveldb", LevelDB: LevelDBArchiveOptions{DBPath: dir, Compression: "snappy"}})
		},
		"pebble": func(dir string) (Archive, error) {
			return NewArchiveWithOptions(&Options{Type: "pebble", Pebble: PebbleArchiveOptions{DBPath: dir, SetWithoutSync: true, CacheSize: 1 << 20, LoadBlockSemaCapacity: 4}})
		},
	}

	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	contact := form.SectionRef{Namespace: form.NamespacePrimary, Section: "contact"}
	snap := func(id string, ref form.SectionRef, offset time.Duration) *Snapshot {
		return &Snapshot{
			ID:         id,
			Namespace:  ref.Namespace,
			Section:    ref.Section,
			ExportedAt: base.Add(offset),
			Fields:     []*Field{{Name: "email", Label: "Email", Type: form.FieldTypeEmail, SortOrder: 1}},
		}
	}

	for name, open := range backends {
		Convey("归档 "+name, t, func() {
			dir := t.TempDir()
			archive, err := open(dir)
			So(err, ShouldBeNil)

			So(archive.Put(ctx, snap("a1", contact, 0)), ShouldBeNil)
			So(archive.Put(ctx, snap("a3", contact, 2*time.Second)), ShouldBeNil)
			So(archive.Put(ctx, snap("a2", contact, time.Second)), ShouldBeNil)
			So(archive.Put(ctx, snap("b1", form.SectionRef{Namespace: form.NamespacePrimary, Section: "contact_extra"}, 0)), ShouldBeNil)
			So(archive.Put(ctx, snap("c1", form.SectionRef{Namespace: form.NamespaceSecondary, Section: "contact"}, 0)), ShouldBeNil)
			So(archive.Put(ctx, snap("u1", form.SectionRef{Namespace: form.NamespacePrimary}, 0)), ShouldBeNil)

			Convey("Get", func() {
				got, err := archive.Get(ctx, "a2")
				So(err, ShouldBeNil)
				So(got.Section, ShouldEqual, "contact")
				So(got.ExportedAt.Equal(base.Add(time.Second)), ShouldBeTrue)
				So(got.Fields[0].Type, ShouldEqual, form.FieldTypeEmail)

				_, err = archive.Get(ctx, "missing")
				So(form.IsNotFound(err), ShouldBeTrue)
			})

			Convey("List 只返回当前作用域，最新的在前", func() {
				list, err := archive.List(ctx, contact)
				So(err, ShouldBeNil)
				var ids []string
				for _, s := range list {
					ids = append(ids, s.ID)
				}
				So(ids, ShouldResemble, []string{"a3", "a2", "a1"})

				list, err = archive.List(ctx, form.SectionRef{Namespace: form.NamespacePrimary})
				So(err, ShouldBeNil)
				So(len(list), ShouldEqual, 1)
				So(list[0].ID, ShouldEqual, "u1")

				list, err = archive.List(ctx, form.SectionRef{Namespace: form.NamespaceSecondary, Section: "intro"})
				So(err, ShouldBeNil)
				So(list, ShouldBeEmpty)
			})

			Convey("重新打开后数据仍在", func() {
				So(archive.Close(), ShouldBeNil)
				archive, err = open(dir)
				So(err, ShouldBeNil)
				got, err := archive.Get(ctx, "c1")
				So(err, ShouldBeNil)
				So(got.Namespace, ShouldEqual, form.NamespaceSecondary)
			})

			Reset(func() {
				_ = archive.Close()
			})
		})
	}

	Convey("NewArchiveWithOptions", t, func() {
		archive, err := NewArchiveWithOptions(&Options{Type: "none"})
		So(err, ShouldBeNil)
		So(archive, ShouldBeNil)

		_, err = NewArchiveWithOptions(&Options{Type: "s3"})
		So(err, ShouldNotBeNil)

		_, err = NewArchiveWithOptions(nil)
		So(err, ShouldNotBeNil)
	})

	Convey("upperBound", t, func() {
		So(upperBound([]byte("scope/")), ShouldResemble, []byte("scope0"))
		So(upperBound([]byte{0x01, 0xff}), ShouldResemble, []byte{0x02})
		So(upperBound([]byte{0xff}), ShouldBeNil)
	})
}
