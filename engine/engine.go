package engine

import (
	"context"
	"errors"
	"io"

	"github.com/hatlonely/formlayout/cache"
	"github.com/hatlonely/formlayout/cfg"
	"github.com/hatlonely/formlayout/layout"
	"github.com/hatlonely/formlayout/log"
	"github.com/hatlonely/formlayout/log/logger"
	"github.com/hatlonely/formlayout/registry"
	"github.com/hatlonely/formlayout/snapshot"
	"github.com/hatlonely/formlayout/store"
	pkgerrors "github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// EnvPrefix 环境变量前缀，例如 FORMLAYOUT_STORE_DRIVER=mysql
const EnvPrefix = "FORMLAYOUT"

// Options 全部组件的配置
type Options struct {
	Store    store.Options          `cfg:"store"`
	Cache    cache.Options          `cfg:"cache"`
	Archive  snapshot.Options       `cfg:"archive"`
	Log      logger.SLogOptions     `cfg:"log"`
	Observer layout.ObserverOptions `cfg:"observer"`
}

// LoadOptions 读取配置文件并叠加 FORMLAYOUT_ 前缀的环境变量，path 为空时只使用默认值和环境变量
func LoadOptions(path string) (*Options, error) {
	options := &Options{}
	if err := cfg.Load(path, EnvPrefix, options); err != nil {
		return nil, err
	}
	return options, nil
}

// Engine 组装好的各个组件
type Engine struct {
	Store        store.Store
	Cache        cache.LayoutCache
	Archive      snapshot.Archive
	Logger       logger.Logger
	Metrics      *prometheus.Registry
	Sections     *registry.SectionRegistry
	Fields       *registry.FieldRegistry
	FieldOptions *registry.OptionRegistry
	Seeder       *registry.Seeder
	Analyzer     *layout.Analyzer
	Reorganizer  *layout.Reorganizer
	Exporter     *snapshot.Exporter

	closers []func() error
}

func NewEngineWithOptions(ctx context.Context, options *Options) (*Engine, error) {
	if options == nil {
		return nil, pkgerrors.New("options is nil")
	}

	e := &Engine{Metrics: prometheus.NewRegistry()}
	ok := false
	defer func() {
		if !ok {
			_ = e.Close()
		}
	}()

	l, err := log.NewLoggerWithOptions(&options.Log)
	if err != nil {
		return nil, err
	}
	e.Logger = l
	if c, ok := l.(io.Closer); ok {
		e.closers = append(e.closers, c.Close)
	}

	if e.Store, err = store.NewStoreWithOptions(ctx, &options.Store); err != nil {
		return nil, pkgerrors.WithMessage(err, "failed to create store")
	}
	e.closers = append(e.closers, e.Store.Close)

	if e.Cache, err = cache.NewLayoutCacheWithOptions(&options.Cache); err != nil {
		return nil, pkgerrors.WithMessage(err, "failed to create cache")
	}
	e.closers = append(e.closers, e.Cache.Close)

	if e.Archive, err = snapshot.NewArchiveWithOptions(&options.Archive); err != nil {
		return nil, pkgerrors.WithMessage(err, "failed to create archive")
	}
	if e.Archive != nil {
		e.closers = append(e.closers, e.Archive.Close)
	}

	observer, err := layout.NewObserverWithOptions(&options.Observer, e.Metrics, e.Logger)
	if err != nil {
		return nil, pkgerrors.WithMessage(err, "failed to create observer")
	}

	e.Sections = registry.NewSectionRegistry(e.Store, e.Cache, e.Logger)
	e.Fields = registry.NewFieldRegistry(e.Store, e.Cache, e.Logger)
	e.FieldOptions = registry.NewOptionRegistry(e.Store, e.Logger)
	e.Seeder = registry.NewSeeder(e.Store, e.Cache, e.Logger)
	e.Analyzer = layout.NewAnalyzer(e.Store)
	e.Reorganizer = layout.NewReorganizer(e.Store, e.Cache, observer, e.Logger)
	e.Exporter = snapshot.NewExporter(e.Store, snapshot.NewIDGeneratorWithOptions(&options.Archive.ID), e.Archive, e.Logger)

	ok = true
	return e, nil
}

// Close 按创建的相反顺序关闭各组件
func (e *Engine) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}
