package store

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"

	. "github.com/bytedance/mockey"
	"github.com/hatlonely/formlayout/form"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func newTestStore(t *testing.T) *GormStore {
	s, err := NewGormStoreWithOptions(&Options{
		Driver: "sqlite",
		SQLite: SQLiteOptions{Path: filepath.Join(t.TempDir(), "test.db")},
		Retry:  RetryOptions{MaxRetries: 3},
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s Store, fields ...*form.Field) {
	err := s.WithTx(context.Background(), "seed", func(tx Tx) error {
		if err := tx.CreateSection(context.Background(), &form.Section{
			Namespace: form.NamespacePrimary, Name: "business", Title: "Business", StepNumber: 2, IsVisible: true,
		}); err != nil {
			return err
		}
		for _, f := range fields {
			if err := tx.CreateField(context.Background(), f); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to seed: %v", err)
	}
}

func field(name string, order int) *form.Field {
	return &form.Field{
		Name:      name,
		Label:     name,
		Type:      form.FieldTypeText,
		Namespace: form.NamespacePrimary,
		Section:   "business",
		SortOrder: order,
		IsVisible: true,
	}
}

func names(fields []*form.Field) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.Name)
	}
	return out
}

func TestNewStoreWithOptions(t *testing.T) {
	Convey("NewStoreWithOptions", t, func() {
		Convey("options为nil时返回错误", func() {
			s, err := NewStoreWithOptions(context.Background(), nil)
			So(err, ShouldNotBeNil)
			So(s, ShouldBeNil)
		})

		Convey("不支持的驱动", func() {
			_, err := NewStoreWithOptions(context.Background(), &Options{Driver: "oracle"})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "unsupported driver")
		})

		Convey("postgres 缺少 dsn", func() {
			_, err := NewStoreWithOptions(context.Background(), &Options{Driver: "postgres"})
			So(err, ShouldNotBeNil)
		})

		Convey("创建 sqlite 存储", func() {
			s, err := NewStoreWithOptions(context.Background(), &Options{
				Driver: "sqlite",
				SQLite: SQLiteOptions{Path: filepath.Join(t.TempDir(), "new.db")},
			})
			So(err, ShouldBeNil)
			So(s.Close(), ShouldBeNil)
		})
	})
}

func TestDSN(t *testing.T) {
	Convey("DSN", t, func() {
		Convey("sqlite 附加锁参数", func() {
			dsn := (&SQLiteOptions{Path: "/tmp/a.db"}).DSN()
			So(dsn, ShouldEqual, "/tmp/a.db?_busy_timeout=5000&_txlock=immediate&_foreign_keys=1")

			dsn = (&SQLiteOptions{Path: "file:a.db?mode=rwc"}).DSN()
			So(dsn, ShouldStartWith, "file:a.db?mode=rwc&_busy_timeout=")
		})

		Convey("mysql", func() {
			dsn := (&MySQLOptions{Host: "db", Port: 3306, User: "root", Password: "pw", Database: "formlayout"}).DSN()
			So(dsn, ShouldContainSubstring, "root:pw@tcp(db:3306)/formlayout")
			So(dsn, ShouldContainSubstring, "parseTime=true")
			So(dsn, ShouldContainSubstring, "clientFoundRows=true")
		})
	})
}

func TestGormStoreSection(t *testing.T) {
	Convey("GormStore 分区读写", t, func() {
		s := newTestStore(t)
		ctx := context.Background()
		seed(t, s)

		Convey("读取分区", func() {
			sec, err := s.GetSection(ctx, form.NamespacePrimary, "business")
			So(err, ShouldBeNil)
			So(sec.Title, ShouldEqual, "Business")
			So(sec.StepNumber, ShouldEqual, 2)
			So(sec.IsVisible, ShouldBeTrue)
		})

		Convey("不同命名空间互相隔离", func() {
			_, err := s.GetSection(ctx, form.NamespaceSecondary, "business")
			So(form.IsNotFound(err), ShouldBeTrue)
		})

		Convey("重复名称", func() {
			err := s.WithTx(ctx, "create", func(tx Tx) error {
				return tx.CreateSection(ctx, &form.Section{Namespace: form.NamespacePrimary, Name: "business", Title: "x", StepNumber: 1})
			})
			So(form.IsDuplicateName(err), ShouldBeTrue)
		})

		Convey("按步骤号和名称排序", func() {
			err := s.WithTx(ctx, "create", func(tx Tx) error {
				for _, name := range []string{"contact", "alpha"} {
					if err := tx.CreateSection(ctx, &form.Section{Namespace: form.NamespacePrimary, Name: name, Title: name, StepNumber: 2}); err != nil {
						return err
					}
				}
				return tx.CreateSection(ctx, &form.Section{Namespace: form.NamespacePrimary, Name: "intro", Title: "intro", StepNumber: 1})
			})
			So(err, ShouldBeNil)

			sections, err := s.ListSections(ctx, form.NamespacePrimary)
			So(err, ShouldBeNil)
			So(len(sections), ShouldEqual, 4)
			So(sections[0].Name, ShouldEqual, "intro")
			So(sections[1].Name, ShouldEqual, "alpha")
			So(sections[2].Name, ShouldEqual, "business")
			So(sections[3].Name, ShouldEqual, "contact")
		})

		Convey("更新不存在的分区", func() {
			err := s.WithTx(ctx, "update", func(tx Tx) error {
				return tx.UpdateSection(ctx, &form.Section{Namespace: form.NamespacePrimary, Name: "missing", Title: "x"})
			})
			So(form.IsNotFound(err), ShouldBeTrue)
		})
	})
}

func TestGormStoreField(t *testing.T) {
	Convey("GormStore 字段读写", t, func() {
		s := newTestStore(t)
		ctx := context.Background()
		seed(t, s, field("c", 3), field("a", 1), field("z", 0), field("b", 2))

		Convey("布局顺序，哨兵在前", func() {
			fields, err := s.ListFields(ctx, form.SectionRef{Namespace: form.NamespacePrimary, Section: "business"})
			So(err, ShouldBeNil)
			So(names(fields), ShouldResemble, []string{"z", "a", "b", "c"})
			So(fields[0].SectionStep, ShouldEqual, 2)
		})

		Convey("读取单个字段", func() {
			f, err := s.GetField(ctx, "b")
			So(err, ShouldBeNil)
			So(f.SortOrder, ShouldEqual, 2)
			So(f.Section, ShouldEqual, "business")

			_, err = s.GetField(ctx, "missing")
			So(form.IsNotFound(err), ShouldBeTrue)
		})

		Convey("分区重新分配保留排序号", func() {
			var n int64
			err := s.WithTx(ctx, "reassign", func(tx Tx) error {
				var err error
				n, err = tx.ReassignSection(ctx, form.NamespacePrimary, "business", form.NoSection)
				return err
			})
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 4)

			fields, err := s.ListFields(ctx, form.SectionRef{Namespace: form.NamespacePrimary})
			So(err, ShouldBeNil)
			So(names(fields), ShouldResemble, []string{"z", "a", "b", "c"})
			So(fields[0].SectionStep, ShouldEqual, 0)
		})

		Convey("锁定作用域", func() {
			err := s.WithTx(ctx, "lock", func(tx Tx) error {
				fields, err := tx.LockScope(ctx, form.SectionRef{Namespace: form.NamespacePrimary, Section: "business"})
				So(err, ShouldBeNil)
				So(len(fields), ShouldEqual, 4)
				So(fields[1].SectionStep, ShouldEqual, 2)
				return nil
			})
			So(err, ShouldBeNil)
		})
	})
}

func TestGormStoreWithTx(t *testing.T) {
	PatchConvey("GormStore.WithTx", t, func() {
		s := newTestStore(t)
		ctx := context.Background()
		seed(t, s, field("a", 1), field("b", 2), field("c", 3))

		Convey("领域错误原样返回并回滚", func() {
			err := s.WithTx(ctx, "move", func(tx Tx) error {
				if err := tx.SetSortOrder(ctx, "a", 9); err != nil {
					return err
				}
				return &form.InvalidPositionError{Op: "move", Field: "a", Position: 9, Min: 1, Max: 3}
			})
			So(form.IsInvalidPosition(err), ShouldBeTrue)

			f, _ := s.GetField(ctx, "a")
			So(f.SortOrder, ShouldEqual, 1)
		})

		Convey("写入中途失败，全部回滚", func() {
			var calls int32
			var origin func(t *gormTx, ctx context.Context, name string, sortOrder int) error
			Mock((*gormTx).SetSortOrder).To(func(t *gormTx, ctx context.Context, name string, sortOrder int) error {
				if atomic.AddInt32(&calls, 1) > 1 {
					return errors.New("disk I/O error")
				}
				return origin(t, ctx, name, sortOrder)
			}).Origin(&origin).Build()

			err := s.WithTx(ctx, "reorder", func(tx Tx) error {
				for _, name := range []string{"c", "b", "a"} {
					if err := tx.SetSortOrder(ctx, name, 10); err != nil {
						return err
					}
				}
				return nil
			})
			So(form.IsTransaction(err), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "disk I/O error")

			fields, _ := s.ListFields(ctx, form.SectionRef{Namespace: form.NamespacePrimary, Section: "business"})
			So(names(fields), ShouldResemble, []string{"a", "b", "c"})
			So(fields[2].SortOrder, ShouldEqual, 3)
		})

		Convey("panic 时回滚并继续抛出", func() {
			So(func() {
				_ = s.WithTx(ctx, "panic", func(tx Tx) error {
					_ = tx.SetSortOrder(ctx, "a", 7)
					panic("boom")
				})
			}, ShouldPanicWith, "boom")

			f, _ := s.GetField(ctx, "a")
			So(f.SortOrder, ShouldEqual, 1)
		})
	})
}

func TestGormStoreOption(t *testing.T) {
	Convey("GormStore 选项读写", t, func() {
		s := newTestStore(t)
		ctx := context.Background()
		seed(t, s)

		err := s.WithTx(ctx, "options", func(tx Tx) error {
			for i, v := range []string{"large", "small", "medium"} {
				if err := tx.CreateOption(ctx, &form.Option{Field: "size", Namespace: form.NamespacePrimary, Value: v, Label: v, SortOrder: 3 - i}); err != nil {
					return err
				}
			}
			return nil
		})
		So(err, ShouldBeNil)

		options, err := s.ListOptions(ctx, "size")
		So(err, ShouldBeNil)
		So(len(options), ShouldEqual, 3)
		So(options[0].Value, ShouldEqual, "medium")
		So(options[2].Value, ShouldEqual, "large")

		err = s.WithTx(ctx, "dup", func(tx Tx) error {
			return tx.CreateOption(ctx, &form.Option{Field: "size", Namespace: form.NamespacePrimary, Value: "small", Label: "S", SortOrder: 4})
		})
		So(form.IsDuplicateName(err), ShouldBeTrue)

		err = s.WithTx(ctx, "delete", func(tx Tx) error {
			return tx.DeleteOptions(ctx, "size")
		})
		So(err, ShouldBeNil)
		options, _ = s.ListOptions(ctx, "size")
		So(options, ShouldBeEmpty)
	})
}
