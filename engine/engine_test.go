package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hatlonely/formlayout/cache"
	"github.com/hatlonely/formlayout/form"
	"github.com/hatlonely/formlayout/registry"
	. "github.com/smartystreets/goconvey/convey"
)

func writeConfig(t *testing.T, dir string) string {
	path := filepath.Join(dir, "formlayout.yaml")
	content := fmt.Sprintf(`
store:
  driver: sqlite
  sqlite:
    path: %s
  retry:
    maxRetries: 3
cache:
  type: memory
  ttl: 1m
archive:
  type: bbolt
  bbolt:
    dbPath: %s
log:
  level: warn
  format: json
observer:
  name: enginetest
`, filepath.Join(dir, "engine.db"), filepath.Join(dir, "snapshots.bolt"))
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// setEnv 设置环境变量，并在当前分支结束时清除
func setEnv(key, value string) {
	So(os.Setenv(key, value), ShouldBeNil)
	Reset(func() {
		_ = os.Unsetenv(key)
	})
}

func TestLoadOptions(t *testing.T) {
	Convey("LoadOptions", t, func() {
		dir := t.TempDir()
		path := writeConfig(t, dir)

		Convey("配置文件与默认值合并", func() {
			options, err := LoadOptions(path)
			So(err, ShouldBeNil)
			So(options.Store.Driver, ShouldEqual, "sqlite")
			So(options.Store.Retry.MaxRetries, ShouldEqual, 3)
			So(options.Store.SQLite.BusyTimeout.String(), ShouldEqual, "5s")
			So(options.Cache.KeyPrefix, ShouldEqual, "formlayout:layout:")
			So(options.Archive.Type, ShouldEqual, "bbolt")
			So(options.Archive.BoltDB.BucketName, ShouldEqual, "snapshots")
			So(options.Archive.ID.Version, ShouldEqual, "v7")
			So(options.Log.Format, ShouldEqual, "json")
			So(options.Observer.Name, ShouldEqual, "enginetest")
		})

		Convey("环境变量覆盖配置文件", func() {
			setEnv("FORMLAYOUT_CACHE_TYPE", "none")
			setEnv("FORMLAYOUT_STORE_RETRY_MAX_RETRIES", "7")

			options, err := LoadOptions(path)
			So(err, ShouldBeNil)
			So(options.Cache.Type, ShouldEqual, "none")
			So(options.Store.Retry.MaxRetries, ShouldEqual, 7)
		})

		Convey("没有配置文件时使用默认值", func() {
			options, err := LoadOptions("")
			So(err, ShouldBeNil)
			So(options.Store.Driver, ShouldEqual, "sqlite")
			So(options.Cache.Type, ShouldEqual, "memory")
			So(options.Archive.Type, ShouldEqual, "none")
		})

		Convey("非法配置", func() {
			setEnv("FORMLAYOUT_STORE_DRIVER", "oracle")
			_, err := LoadOptions(path)
			So(err, ShouldNotBeNil)
		})

		Convey("环境变量在分支之间不残留", func() {
			_, set := os.LookupEnv("FORMLAYOUT_CACHE_TYPE")
			So(set, ShouldBeFalse)
			_, set = os.LookupEnv("FORMLAYOUT_STORE_DRIVER")
			So(set, ShouldBeFalse)
		})
	})
}

func TestEngine(t *testing.T) {
	ctx := context.Background()

	Convey("Engine", t, func() {
		options, err := LoadOptions(writeConfig(t, t.TempDir()))
		So(err, ShouldBeNil)

		e, err := NewEngineWithOptions(ctx, options)
		So(err, ShouldBeNil)
		Reset(func() {
			So(e.Close(), ShouldBeNil)
		})

		So(e.Archive, ShouldNotBeNil)
		So(e.Cache, ShouldHaveSameTypeAs, &cache.MemoryCache{})

		file, err := registry.ParseSeed([]byte(`
namespace: primary
sections:
  - {name: contact, title: Contact, stepNumber: 1, isVisible: true}
fields:
  - {name: email, label: Email, type: email, section: contact, sortOrder: 1, isVisible: true}
  - {name: phone, label: Phone, type: phone, section: contact, sortOrder: 2, isVisible: true}
  - {name: city, label: City, type: text, section: contact, isVisible: true}
`), "yaml")
		So(err, ShouldBeNil)
		_, err = e.Seeder.Seed(ctx, file, nil)
		So(err, ShouldBeNil)

		Convey("组件共享同一个存储和缓存", func() {
			fields, err := e.Reorganizer.InsertAt(ctx, form.NamespacePrimary, "city", "contact", 1)
			So(err, ShouldBeNil)
			So(fields[0].Name, ShouldEqual, "city")

			layout, err := e.Fields.GetLayout(ctx, form.NamespacePrimary, "contact")
			So(err, ShouldBeNil)
			So(layout[0].Name, ShouldEqual, "city")
			So(layout[2].SortOrder, ShouldEqual, 3)

			report, err := e.Analyzer.Analyze(ctx, form.NamespacePrimary, "contact")
			So(err, ShouldBeNil)
			So(report.Healthy(), ShouldBeTrue)

			families, err := e.Metrics.Gather()
			So(err, ShouldBeNil)
			So(families, ShouldNotBeEmpty)
		})

		Convey("导出写入归档", func() {
			snap, err := e.Exporter.Export(ctx, form.NamespacePrimary, "contact")
			So(err, ShouldBeNil)

			list, err := e.Archive.List(ctx, form.SectionRef{Namespace: form.NamespacePrimary, Section: "contact"})
			So(err, ShouldBeNil)
			So(len(list), ShouldEqual, 1)
			So(list[0].ID, ShouldEqual, snap.ID)
			So(len(list[0].Fields), ShouldEqual, 3)
		})
	})

	Convey("创建失败时释放已创建的组件", t, func() {
		options, err := LoadOptions(writeConfig(t, t.TempDir()))
		So(err, ShouldBeNil)
		options.Cache.Type = "unknown"

		_, err = NewEngineWithOptions(ctx, options)
		So(err, ShouldNotBeNil)

		_, err = NewEngineWithOptions(ctx, nil)
		So(err, ShouldNotBeNil)
	})
}
