package registry

import (
	"context"

	"github.com/hatlonely/formlayout/cache"
	"github.com/hatlonely/formlayout/form"
	"github.com/hatlonely/formlayout/layout"
	"github.com/hatlonely/formlayout/log/logger"
	"github.com/hatlonely/formlayout/store"
)

// FieldRegistry 字段的增删改查。位置调整通过 layout.Reorganizer 完成
type FieldRegistry struct {
	store  store.Store
	cache  cache.LayoutCache
	logger logger.Logger
}

func NewFieldRegistry(s store.Store, c cache.LayoutCache, l logger.Logger) *FieldRegistry {
	if c == nil {
		c = cache.NopCache{}
	}
	if l == nil {
		l = logger.Nop{}
	}
	return &FieldRegistry{store: s, cache: c, logger: l}
}

// Create 创建字段，排序号按传入值保存
func (r *FieldRegistry) Create(ctx context.Context, field *form.Field) (*form.Field, error) {
	if err := form.Validate(field); err != nil {
		return nil, err
	}

	created := *field
	err := r.store.WithTx(ctx, "field.create", func(tx store.Tx) error {
		return createField(ctx, tx, &created)
	})
	if err != nil {
		return nil, err
	}

	r.invalidate(ctx, created.Ref())
	r.logger.InfoContext(ctx, "field created", "field", created.Name, "scope", created.Ref().String(), "sort_order", created.SortOrder)
	return r.store.GetField(ctx, created.Name)
}

func createField(ctx context.Context, tx store.Tx, field *form.Field) error {
	if _, err := tx.GetField(ctx, field.Name); err == nil {
		return &form.DuplicateNameError{Entity: "field", Name: field.Name}
	} else if !form.IsNotFound(err) {
		return err
	}
	if field.Section != form.NoSection {
		if _, err := tx.GetSection(ctx, field.Namespace, field.Section); err != nil {
			return err
		}
	}
	return tx.CreateField(ctx, field)
}

func (r *FieldRegistry) Get(ctx context.Context, name string) (*form.Field, error) {
	return r.store.GetField(ctx, name)
}

// GetLayout 分区内全部字段，按 (分区步骤, 字段步骤, 排序号, 名称) 排序，未分配的字段在前
func (r *FieldRegistry) GetLayout(ctx context.Context, ns form.Namespace, section string) ([]*form.Field, error) {
	if !ns.Valid() {
		return nil, &form.InvalidArgumentError{Field: "namespace", Reason: "unknown namespace " + string(ns)}
	}
	if section != form.NoSection {
		if _, err := r.store.GetSection(ctx, ns, section); err != nil {
			return nil, err
		}
	}

	ref := form.SectionRef{Namespace: ns, Section: section}
	return cache.ReadThrough(ctx, r.cache, ref, func(ctx context.Context) ([]*form.Field, error) {
		return r.store.ListFields(ctx, ref)
	})
}

// Update 部分更新字段。修改分区不会重新编号，新分区中可能出现冲突，需要调用方显式调整位置
func (r *FieldRegistry) Update(ctx context.Context, name string, patch *form.FieldPatch) (*form.Field, error) {
	var before, after form.Field
	err := r.store.WithTx(ctx, "field.update", func(tx store.Tx) error {
		field, err := tx.GetField(ctx, name)
		if err != nil {
			return err
		}
		before = *field
		patch.Apply(field)
		if err := form.Validate(field); err != nil {
			return err
		}

		if field.Section != before.Section && field.Section != form.NoSection {
			if _, err := tx.GetSection(ctx, field.Namespace, field.Section); err != nil {
				return err
			}
		}
		if before.Type.HasOptions() && !field.Type.HasOptions() {
			options, err := tx.ListOptions(ctx, name)
			if err != nil {
				return err
			}
			if len(options) > 0 {
				return &form.InvalidArgumentError{Field: "type", Reason: "field " + name + " still has options"}
			}
		}

		after = *field
		return tx.UpdateField(ctx, field)
	})
	if err != nil {
		return nil, err
	}

	r.invalidate(ctx, before.Ref(), after.Ref())
	if before.Section != after.Section {
		r.logger.InfoContext(ctx, "field reassigned", "field", name, "from", before.Ref().String(), "to", after.Ref().String(), "sort_order", after.SortOrder)
	}
	return r.store.GetField(ctx, name)
}

// Delete 删除字段及其选项，同分区的后续字段前移
func (r *FieldRegistry) Delete(ctx context.Context, name string) error {
	var ref form.SectionRef
	err := r.store.WithTx(ctx, "field.delete", func(tx store.Tx) error {
		field, err := tx.GetField(ctx, name)
		if err != nil {
			return err
		}
		ref = field.Ref()

		fields, err := tx.LockScope(ctx, ref)
		if err != nil {
			return err
		}
		for _, f := range fields {
			if f.Name == name {
				field = f
			}
		}
		plan := layout.PlanRemove(fields, field)
		if err := plan.Apply(ctx, tx); err != nil {
			return err
		}
		if err := tx.DeleteOptions(ctx, name); err != nil {
			return err
		}
		return tx.DeleteField(ctx, name)
	})
	if err != nil {
		return err
	}

	r.invalidate(ctx, ref)
	r.logger.InfoContext(ctx, "field deleted", "field", name, "scope", ref.String())
	return nil
}

func (r *FieldRegistry) invalidate(ctx context.Context, refs ...form.SectionRef) {
	if err := r.cache.Invalidate(ctx, refs...); err != nil {
		r.logger.WarnContext(ctx, "invalidate layout cache failed", "error", err.Error())
	}
}
