package layout

import (
	"context"
	"strings"

	"github.com/hatlonely/formlayout/cache"
	"github.com/hatlonely/formlayout/form"
	"github.com/hatlonely/formlayout/log/logger"
	"github.com/hatlonely/formlayout/store"
)

// Reorganizer 重排操作。每个操作在一个事务中完成，提交后失效相关作用域的缓存
type Reorganizer struct {
	store    store.Store
	cache    cache.LayoutCache
	observer *Observer
	logger   logger.Logger
}

// NewReorganizer c 和 observer 可以为 nil
func NewReorganizer(s store.Store, c cache.LayoutCache, observer *Observer, l logger.Logger) *Reorganizer {
	if c == nil {
		c = cache.NopCache{}
	}
	if l == nil {
		l = logger.Nop{}
	}
	return &Reorganizer{store: s, cache: c, observer: observer, logger: l}
}

// FixResult 自动修复前后的诊断
type FixResult struct {
	Before   *Report `json:"before" yaml:"before"`
	After    *Report `json:"after" yaml:"after"`
	Repaired bool    `json:"repaired" yaml:"repaired"`
}

// run 在事务中生成并写入计划，提交后失效缓存
func (r *Reorganizer) run(ctx context.Context, op string, ref form.SectionRef, build func(ctx context.Context, tx store.Tx) (*Plan, error)) (*Plan, error) {
	if !ref.Namespace.Valid() {
		return nil, &form.InvalidArgumentError{Field: "namespace", Reason: "unknown namespace " + string(ref.Namespace)}
	}

	var plan *Plan
	err := r.observer.Observe(ctx, op, ref, func(ctx context.Context) (int, error) {
		err := r.store.WithTx(ctx, "layout."+op, func(tx store.Tx) error {
			p, err := build(ctx, tx)
			if err != nil {
				return err
			}
			if err := p.Apply(ctx, tx); err != nil {
				return err
			}
			plan = p
			return nil
		})
		if err != nil {
			return 0, err
		}
		return len(plan.Changes), nil
	})
	if err != nil {
		return nil, err
	}

	if !plan.Empty() {
		r.invalidate(ctx, plan.Refs()...)
	}
	return plan, nil
}

func (r *Reorganizer) invalidate(ctx context.Context, refs ...form.SectionRef) {
	if err := r.cache.Invalidate(ctx, refs...); err != nil {
		r.logger.WarnContext(ctx, "invalidate layout cache failed", "refs", refs, "error", err.Error())
	}
}

// AutoReorder 把分区内全部字段重新编号为 1..N，返回新的布局
func (r *Reorganizer) AutoReorder(ctx context.Context, ns form.Namespace, section string, preserveRelativeOrder bool) ([]*form.Field, error) {
	ref := form.SectionRef{Namespace: ns, Section: section}
	var fields []*form.Field
	plan, err := r.run(ctx, "reorder", ref, func(ctx context.Context, tx store.Tx) (*Plan, error) {
		if err := checkSection(ctx, tx, ref); err != nil {
			return nil, err
		}
		var err error
		if fields, err = tx.LockScope(ctx, ref); err != nil {
			return nil, err
		}
		return PlanReorder(fields, preserveRelativeOrder), nil
	})
	if err != nil {
		return nil, err
	}
	return plan.Preview(fields), nil
}

// InsertAt 把字段插入分区的 position 位置，position 合法区间为 [1, N+1]
func (r *Reorganizer) InsertAt(ctx context.Context, ns form.Namespace, name string, section string, position int) ([]*form.Field, error) {
	ref := form.SectionRef{Namespace: ns, Section: section}
	_, err := r.run(ctx, "insert", ref, func(ctx context.Context, tx store.Tx) (*Plan, error) {
		if err := checkSection(ctx, tx, ref); err != nil {
			return nil, err
		}
		field, err := getField(ctx, tx, ns, name)
		if err != nil {
			return nil, err
		}

		source, target, err := lockScopes(ctx, tx, field.Ref(), ref)
		if err != nil {
			return nil, err
		}
		if field, err = find(source, field.Ref(), name); err != nil {
			return nil, err
		}
		return PlanInsert(source, target, field, section, position)
	})
	if err != nil {
		return nil, err
	}
	return r.store.ListFields(ctx, ref)
}

// Remove 把字段置为未分配并压缩同分区的后续字段，未定位的字段不做任何修改
func (r *Reorganizer) Remove(ctx context.Context, ns form.Namespace, name string) (*form.Field, error) {
	var removed form.Field
	// 观测维度使用字段当前所在的作用域，字段不存在时由事务内的读取返回错误
	ref := form.SectionRef{Namespace: ns}
	if field, err := r.store.GetField(ctx, name); err == nil && field.Namespace == ns {
		ref = field.Ref()
	}
	_, err := r.run(ctx, "remove", ref, func(ctx context.Context, tx store.Tx) (*Plan, error) {
		field, err := getField(ctx, tx, ns, name)
		if err != nil {
			return nil, err
		}
		fields, err := tx.LockScope(ctx, field.Ref())
		if err != nil {
			return nil, err
		}
		if field, err = find(fields, field.Ref(), name); err != nil {
			return nil, err
		}
		removed = *field
		removed.SortOrder = form.Unassigned
		return PlanRemove(fields, field), nil
	})
	if err != nil {
		return nil, err
	}
	return &removed, nil
}

// Move 在分区内把字段移到 position，position 合法区间为 [1, N]
func (r *Reorganizer) Move(ctx context.Context, ns form.Namespace, name string, section string, position int) ([]*form.Field, error) {
	ref := form.SectionRef{Namespace: ns, Section: section}
	var fields []*form.Field
	plan, err := r.run(ctx, "move", ref, func(ctx context.Context, tx store.Tx) (*Plan, error) {
		if err := checkSection(ctx, tx, ref); err != nil {
			return nil, err
		}
		var err error
		if fields, err = tx.LockScope(ctx, ref); err != nil {
			return nil, err
		}
		field, err := find(fields, ref, name)
		if err != nil {
			return nil, err
		}
		return PlanMove(fields, field, position)
	})
	if err != nil {
		return nil, err
	}
	return plan.Preview(fields), nil
}

// AutoFix 诊断分区，存在 error 级别的问题时按原相对顺序重排后再次诊断
func (r *Reorganizer) AutoFix(ctx context.Context, ns form.Namespace, section string) (*FixResult, error) {
	ref := form.SectionRef{Namespace: ns, Section: section}
	if !ns.Valid() {
		return nil, &form.InvalidArgumentError{Field: "namespace", Reason: "unknown namespace " + string(ns)}
	}
	if section != form.NoSection {
		if _, err := r.store.GetSection(ctx, ns, section); err != nil {
			return nil, err
		}
	}

	fields, err := r.store.ListFields(ctx, ref)
	if err != nil {
		return nil, err
	}
	result := &FixResult{Before: AnalyzeFields(ref, fields)}
	if result.Before.Healthy() {
		result.After = result.Before
		return result, nil
	}

	if fields, err = r.AutoReorder(ctx, ns, section, true); err != nil {
		return nil, err
	}
	result.After = AnalyzeFields(ref, fields)
	result.Repaired = true
	r.logger.InfoContext(ctx, "layout repaired", "scope", ref.String(), "issues", result.Before.Kinds())
	return result, nil
}

func checkSection(ctx context.Context, tx store.Tx, ref form.SectionRef) error {
	if ref.Section == form.NoSection {
		return nil
	}
	_, err := tx.GetSection(ctx, ref.Namespace, ref.Section)
	return err
}

func getField(ctx context.Context, tx store.Tx, ns form.Namespace, name string) (*form.Field, error) {
	field, err := tx.GetField(ctx, name)
	if err != nil {
		return nil, err
	}
	if field.Namespace != ns {
		return nil, &form.NotFoundError{Entity: "field", Key: string(ns) + "/" + name}
	}
	return field, nil
}

// lockScopes 按固定顺序锁定两个作用域，相同时只锁一次
func lockScopes(ctx context.Context, tx store.Tx, a, b form.SectionRef) ([]*form.Field, []*form.Field, error) {
	if a == b {
		fields, err := tx.LockScope(ctx, a)
		return fields, fields, err
	}

	first, second := a, b
	if strings.Compare(a.String(), b.String()) > 0 {
		first, second = b, a
	}
	firstFields, err := tx.LockScope(ctx, first)
	if err != nil {
		return nil, nil, err
	}
	secondFields, err := tx.LockScope(ctx, second)
	if err != nil {
		return nil, nil, err
	}
	if first == a {
		return firstFields, secondFields, nil
	}
	return secondFields, firstFields, nil
}

func find(fields []*form.Field, ref form.SectionRef, name string) (*form.Field, error) {
	for _, f := range fields {
		if f.Name == name {
			return f, nil
		}
	}
	return nil, &form.NotFoundError{Entity: "field", Key: name + " in " + ref.String()}
}
