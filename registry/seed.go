package registry

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/hatlonely/formlayout/cache"
	"github.com/hatlonely/formlayout/form"
	"github.com/hatlonely/formlayout/log/logger"
	"github.com/hatlonely/formlayout/store"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// SeedFile 表单结构的初始化数据。条目中未指定命名空间时使用文件级的 Namespace
type SeedFile struct {
	Namespace form.Namespace `json:"namespace" yaml:"namespace"`
	Sections  []*form.Section `json:"sections" yaml:"sections"`
	Fields    []*SeedField    `json:"fields" yaml:"fields"`
}

type SeedField struct {
	form.Field `yaml:",inline"`
	Options    []*form.Option `json:"options,omitempty" yaml:"options,omitempty"`
}

type SeedOptions struct {
	// SkipExisting 跳过已存在的分区、字段和选项，否则返回 DuplicateNameError
	SkipExisting bool
}

type SeedResult struct {
	Sections int `json:"sections" yaml:"sections"`
	Fields   int `json:"fields" yaml:"fields"`
	Options  int `json:"options" yaml:"options"`
	Skipped  int `json:"skipped" yaml:"skipped"`
}

// LoadSeedFile 按扩展名解析 yaml 或 json 文件
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read seed file %s failed", path)
	}
	return ParseSeed(data, strings.TrimPrefix(filepath.Ext(path), "."))
}

func ParseSeed(data []byte, format string) (*SeedFile, error) {
	var file SeedFile
	switch strings.ToLower(format) {
	case "json":
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, errors.Wrap(err, "json.Unmarshal failed")
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, errors.Wrap(err, "yaml.Unmarshal failed")
		}
	default:
		return nil, errors.Errorf("unsupported seed format: %s", format)
	}
	return &file, nil
}

// Seeder 在一个事务中导入 SeedFile
type Seeder struct {
	store  store.Store
	cache  cache.LayoutCache
	logger logger.Logger
}

func NewSeeder(s store.Store, c cache.LayoutCache, l logger.Logger) *Seeder {
	if c == nil {
		c = cache.NopCache{}
	}
	if l == nil {
		l = logger.Nop{}
	}
	return &Seeder{store: s, cache: c, logger: l}
}

// normalize 填充命名空间并解析别名，校验全部条目
func (file *SeedFile) normalize() error {
	resolve := func(ns form.Namespace) (form.Namespace, error) {
		if ns == "" {
			ns = file.Namespace
		}
		return form.ParseNamespace(string(ns))
	}

	var err error
	for _, s := range file.Sections {
		if s.Namespace, err = resolve(s.Namespace); err != nil {
			return errors.WithMessagef(err, "section %s", s.Name)
		}
		if err := form.Validate(s); err != nil {
			return errors.WithMessagef(err, "section %s", s.Name)
		}
	}
	for _, f := range file.Fields {
		if f.Namespace, err = resolve(f.Namespace); err != nil {
			return errors.WithMessagef(err, "field %s", f.Name)
		}
		if err := form.Validate(&f.Field); err != nil {
			return errors.WithMessagef(err, "field %s", f.Name)
		}
		for _, o := range f.Options {
			o.Field = f.Name
			o.Namespace = f.Namespace
		}
	}
	return nil
}

func (s *Seeder) Seed(ctx context.Context, file *SeedFile, options *SeedOptions) (*SeedResult, error) {
	if options == nil {
		options = &SeedOptions{}
	}
	if err := file.normalize(); err != nil {
		return nil, err
	}

	var result SeedResult
	var refs []form.SectionRef
	err := s.store.WithTx(ctx, "seed", func(tx store.Tx) error {
		result = SeedResult{}
		refs = refs[:0]

		skip := func(err error) (bool, error) {
			if err == nil {
				return false, nil
			}
			if options.SkipExisting && form.IsDuplicateName(err) {
				result.Skipped++
				return true, nil
			}
			return false, err
		}

		for _, section := range file.Sections {
			created := *section
			if skipped, err := skip(createSection(ctx, tx, &created)); err != nil {
				return err
			} else if !skipped {
				result.Sections++
			}
		}

		for _, field := range file.Fields {
			created := field.Field
			skipped, err := skip(createField(ctx, tx, &created))
			if err != nil {
				return err
			}
			if skipped {
				result.Skipped += len(field.Options)
				continue
			}
			result.Fields++
			refs = append(refs, created.Ref())

			for _, option := range field.Options {
				o := *option
				if skipped, err := skip(createOption(ctx, tx, &o)); err != nil {
					return errors.WithMessagef(err, "field %s", field.Name)
				} else if !skipped {
					result.Options++
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Invalidate(ctx, refs...); err != nil {
		s.logger.WarnContext(ctx, "invalidate layout cache failed", "error", err.Error())
	}
	s.logger.InfoContext(ctx, "seed completed",
		"sections", result.Sections,
		"fields", result.Fields,
		"options", result.Options,
		"skipped", result.Skipped,
	)
	return &result, nil
}
