package registry

import (
	"context"

	"github.com/hatlonely/formlayout/cache"
	"github.com/hatlonely/formlayout/form"
	"github.com/hatlonely/formlayout/log/logger"
	"github.com/hatlonely/formlayout/store"
)

// SectionRegistry 分区的增删改查
type SectionRegistry struct {
	store  store.Store
	cache  cache.LayoutCache
	logger logger.Logger
}

func NewSectionRegistry(s store.Store, c cache.LayoutCache, l logger.Logger) *SectionRegistry {
	if c == nil {
		c = cache.NopCache{}
	}
	if l == nil {
		l = logger.Nop{}
	}
	return &SectionRegistry{store: s, cache: c, logger: l}
}

// Create 创建分区，StepNumber 为 0 时追加到命名空间最后
func (r *SectionRegistry) Create(ctx context.Context, section *form.Section) (*form.Section, error) {
	if err := form.Validate(section); err != nil {
		return nil, err
	}

	var created form.Section
	err := r.store.WithTx(ctx, "section.create", func(tx store.Tx) error {
		created = *section
		return createSection(ctx, tx, &created)
	})
	if err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "section created", "namespace", created.Namespace, "section", created.Name, "step", created.StepNumber)
	return &created, nil
}

func createSection(ctx context.Context, tx store.Tx, section *form.Section) error {
	if _, err := tx.GetSection(ctx, section.Namespace, section.Name); err == nil {
		return &form.DuplicateNameError{Entity: "section", Name: section.Name}
	} else if !form.IsNotFound(err) {
		return err
	}

	if section.StepNumber == 0 {
		sections, err := tx.ListSections(ctx, section.Namespace)
		if err != nil {
			return err
		}
		for _, s := range sections {
			section.StepNumber = max(section.StepNumber, s.StepNumber)
		}
		section.StepNumber++
	}
	return tx.CreateSection(ctx, section)
}

func (r *SectionRegistry) Get(ctx context.Context, ns form.Namespace, name string) (*form.Section, error) {
	return r.store.GetSection(ctx, ns, name)
}

// Update 部分更新分区。步骤号变化会影响布局顺序，提交后失效该分区缓存
func (r *SectionRegistry) Update(ctx context.Context, ns form.Namespace, name string, patch *form.SectionPatch) (*form.Section, error) {
	var updated *form.Section
	err := r.store.WithTx(ctx, "section.update", func(tx store.Tx) error {
		section, err := tx.GetSection(ctx, ns, name)
		if err != nil {
			return err
		}
		patch.Apply(section)
		if section.StepNumber < 1 {
			return &form.InvalidArgumentError{Field: "stepNumber", Reason: "must be at least 1"}
		}
		if err := form.Validate(section); err != nil {
			return err
		}
		updated = section
		return tx.UpdateSection(ctx, section)
	})
	if err != nil {
		return nil, err
	}

	if err := r.cache.Invalidate(ctx, form.SectionRef{Namespace: ns, Section: name}); err != nil {
		r.logger.WarnContext(ctx, "invalidate layout cache failed", "error", err.Error())
	}
	return updated, nil
}

// Delete 删除分区，分区内的字段移到未分配分区并保留排序号
func (r *SectionRegistry) Delete(ctx context.Context, ns form.Namespace, name string) (int64, error) {
	var reassigned int64
	err := r.store.WithTx(ctx, "section.delete", func(tx store.Tx) error {
		if _, err := tx.GetSection(ctx, ns, name); err != nil {
			return err
		}
		n, err := tx.ReassignSection(ctx, ns, name, form.NoSection)
		if err != nil {
			return err
		}
		reassigned = n
		return tx.DeleteSection(ctx, ns, name)
	})
	if err != nil {
		return 0, err
	}

	refs := []form.SectionRef{{Namespace: ns, Section: name}, {Namespace: ns, Section: form.NoSection}}
	if err := r.cache.Invalidate(ctx, refs...); err != nil {
		r.logger.WarnContext(ctx, "invalidate layout cache failed", "error", err.Error())
	}
	r.logger.InfoContext(ctx, "section deleted", "namespace", ns, "section", name, "reassigned_fields", reassigned)
	return reassigned, nil
}

// List 按步骤号排序，同步骤按名称
func (r *SectionRegistry) List(ctx context.Context, ns form.Namespace) ([]*form.Section, error) {
	if !ns.Valid() {
		return nil, &form.InvalidArgumentError{Field: "namespace", Reason: "unknown namespace " + string(ns)}
	}
	return r.store.ListSections(ctx, ns)
}
