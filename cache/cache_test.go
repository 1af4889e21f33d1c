package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hatlonely/formlayout/form"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

var testRef = form.SectionRef{Namespace: form.NamespacePrimary, Section: "business"}

func testFields() []*form.Field {
	return []*form.Field{
		{Name: "a", Label: "A", Type: form.FieldTypeText, Namespace: form.NamespacePrimary, Section: "business", SortOrder: 1, SectionStep: 2},
		{Name: "b", Label: "B", Type: form.FieldTypeSelect, Namespace: form.NamespacePrimary, Section: "business", SortOrder: 2, SectionStep: 2},
	}
}

func newCaches(t *testing.T) map[string]LayoutCache {
	mr := miniredis.RunT(t)

	memory, err := NewLayoutCacheWithOptions(&Options{Type: "memory", TTL: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	fc, err := NewLayoutCacheWithOptions(&Options{Type: "freecache", TTL: time.Minute, KeyPrefix: "test:", FreeCache: FreeCacheOptions{Size: 1024 * 1024}})
	if err != nil {
		t.Fatal(err)
	}
	rc, err := NewLayoutCacheWithOptions(&Options{Type: "redis", TTL: time.Minute, KeyPrefix: "test:", Redis: RedisOptions{Endpoint: mr.Addr()}})
	if err != nil {
		t.Fatal(err)
	}
	return map[string]LayoutCache{"memory": memory, "freecache": fc, "redis": rc}
}

func TestLayoutCache(t *testing.T) {
	for name, c := range newCaches(t) {
		Convey(name, t, func() {
			ctx := context.Background()
			So(c.Invalidate(ctx, testRef), ShouldBeNil)

			Convey("未命中", func() {
				_, ok, err := c.Get(ctx, form.SectionRef{Namespace: form.NamespaceSecondary, Section: "business"})
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})

			Convey("写入后读取", func() {
				So(c.Set(ctx, testRef, testFields()), ShouldBeNil)
				fields, ok, err := c.Get(ctx, testRef)
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(fields, ShouldResemble, testFields())
			})

			Convey("失效", func() {
				So(c.Set(ctx, testRef, testFields()), ShouldBeNil)
				So(c.Invalidate(ctx, testRef), ShouldBeNil)
				_, ok, err := c.Get(ctx, testRef)
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})
		})
	}
}

func TestNewLayoutCacheWithOptions(t *testing.T) {
	Convey("NewLayoutCacheWithOptions", t, func() {
		Convey("options为nil时返回错误", func() {
			_, err := NewLayoutCacheWithOptions(nil)
			So(err, ShouldNotBeNil)
		})

		Convey("不支持的类型", func() {
			_, err := NewLayoutCacheWithOptions(&Options{Type: "memcached"})
			So(err, ShouldNotBeNil)
		})

		Convey("redis 不可达", func() {
			_, err := NewLayoutCacheWithOptions(&Options{Type: "redis", Redis: RedisOptions{Endpoint: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond}})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "redis.client.Ping failed")
		})

		Convey("none", func() {
			c, err := NewLayoutCacheWithOptions(&Options{Type: "none"})
			So(err, ShouldBeNil)
			So(c.Set(context.Background(), testRef, testFields()), ShouldBeNil)
			_, ok, _ := c.Get(context.Background(), testRef)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestMemoryCacheTTL(t *testing.T) {
	Convey("过期后未命中", t, func() {
		c := NewMemoryCache(time.Second)
		now := time.Now()
		c.now = func() time.Time { return now }
		So(c.Set(context.Background(), testRef, testFields()), ShouldBeNil)

		c.now = func() time.Time { return now.Add(2 * time.Second) }
		_, ok, err := c.Get(context.Background(), testRef)
		So(err, ShouldBeNil)
		So(ok, ShouldBeFalse)
	})

	Convey("返回副本", t, func() {
		c := NewMemoryCache(0)
		So(c.Set(context.Background(), testRef, testFields()), ShouldBeNil)
		fields, _, _ := c.Get(context.Background(), testRef)
		fields[0].SortOrder = 99
		again, _, _ := c.Get(context.Background(), testRef)
		So(again[0].SortOrder, ShouldEqual, 1)
	})
}

func TestReadThrough(t *testing.T) {
	Convey("ReadThrough", t, func() {
		ctx := context.Background()
		c := NewMemoryCache(time.Minute)
		loads := 0
		load := func(ctx context.Context) ([]*form.Field, error) {
			loads++
			return testFields(), nil
		}

		fields, err := ReadThrough(ctx, c, testRef, load)
		So(err, ShouldBeNil)
		So(len(fields), ShouldEqual, 2)
		_, err = ReadThrough(ctx, c, testRef, load)
		So(err, ShouldBeNil)
		So(loads, ShouldEqual, 1)

		Convey("加载失败不回填", func() {
			_, err := ReadThrough(ctx, c, form.SectionRef{Namespace: form.NamespacePrimary}, func(ctx context.Context) ([]*form.Field, error) {
				return nil, errors.New("db down")
			})
			So(err, ShouldNotBeNil)
			_, ok, _ := c.Get(ctx, form.SectionRef{Namespace: form.NamespacePrimary})
			So(ok, ShouldBeFalse)
		})

		Convey("cache 为 nil 直接加载", func() {
			_, err := ReadThrough(ctx, nil, testRef, load)
			So(err, ShouldBeNil)
			So(loads, ShouldEqual, 2)
		})
	})
}
