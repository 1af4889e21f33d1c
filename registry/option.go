package registry

import (
	"context"
	"slices"

	"github.com/hatlonely/formlayout/form"
	"github.com/hatlonely/formlayout/log/logger"
	"github.com/hatlonely/formlayout/store"
)

// OptionRegistry 选择类字段的选项
type OptionRegistry struct {
	store  store.Store
	logger logger.Logger
}

func NewOptionRegistry(s store.Store, l logger.Logger) *OptionRegistry {
	if l == nil {
		l = logger.Nop{}
	}
	return &OptionRegistry{store: s, logger: l}
}

// Create 添加选项。SortOrder 为 0 时追加到最后，显式指定的排序号不能和已有选项冲突
func (r *OptionRegistry) Create(ctx context.Context, option *form.Option) (*form.Option, error) {
	created := *option
	err := r.store.WithTx(ctx, "option.create", func(tx store.Tx) error {
		return createOption(ctx, tx, &created)
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func createOption(ctx context.Context, tx store.Tx, option *form.Option) error {
	field, err := tx.GetField(ctx, option.Field)
	if err != nil {
		return err
	}
	if !field.Type.HasOptions() {
		return &form.InvalidArgumentError{Field: "field", Reason: "field " + field.Name + " of type " + field.Type.String() + " does not take options"}
	}
	if option.Namespace == "" {
		option.Namespace = field.Namespace
	} else if option.Namespace != field.Namespace {
		return &form.InvalidArgumentError{Field: "namespace", Reason: "option namespace " + string(option.Namespace) + " differs from field " + field.Name + " in " + string(field.Namespace)}
	}
	if err := form.Validate(option); err != nil {
		return err
	}

	if _, err := tx.GetOption(ctx, option.Field, option.Value); err == nil {
		return &form.DuplicateNameError{Entity: "option", Name: option.Field + "=" + option.Value}
	} else if !form.IsNotFound(err) {
		return err
	}

	options, err := tx.ListOptions(ctx, option.Field)
	if err != nil {
		return err
	}
	if option.SortOrder == 0 {
		for _, o := range options {
			option.SortOrder = max(option.SortOrder, o.SortOrder)
		}
		option.SortOrder++
	} else if err := checkOptionOrder(options, option, "option.create"); err != nil {
		return err
	}
	return tx.CreateOption(ctx, option)
}

func checkOptionOrder(options []*form.Option, option *form.Option, op string) error {
	for _, o := range options {
		if o.Value != option.Value && o.SortOrder == option.SortOrder {
			return &form.InvalidPositionError{
				Op: op, Field: option.Field + "=" + option.Value, Position: option.SortOrder,
				Reason: "sort order is taken by " + o.Value,
			}
		}
	}
	return nil
}

// Update 修改选项的标签或排序号
func (r *OptionRegistry) Update(ctx context.Context, field string, value string, patch *form.OptionPatch) (*form.Option, error) {
	var updated *form.Option
	err := r.store.WithTx(ctx, "option.update", func(tx store.Tx) error {
		option, err := tx.GetOption(ctx, field, value)
		if err != nil {
			return err
		}
		if patch.Label != nil {
			option.Label = *patch.Label
		}
		if patch.SortOrder != nil && *patch.SortOrder != option.SortOrder {
			if *patch.SortOrder < 1 {
				return &form.InvalidPositionError{Op: "option.update", Field: field + "=" + value, Position: *patch.SortOrder, Reason: "sort order must be at least 1"}
			}
			option.SortOrder = *patch.SortOrder
			options, err := tx.ListOptions(ctx, field)
			if err != nil {
				return err
			}
			if err := checkOptionOrder(options, option, "option.update"); err != nil {
				return err
			}
		}
		if err := form.Validate(option); err != nil {
			return err
		}
		updated = option
		return tx.UpdateOption(ctx, option)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *OptionRegistry) Delete(ctx context.Context, field string, value string) error {
	return r.store.WithTx(ctx, "option.delete", func(tx store.Tx) error {
		return tx.DeleteOption(ctx, field, value)
	})
}

// List 按排序号排序，同序号按值
func (r *OptionRegistry) List(ctx context.Context, field string) ([]*form.Option, error) {
	if _, err := r.store.GetField(ctx, field); err != nil {
		return nil, err
	}
	return r.store.ListOptions(ctx, field)
}

// Reorder 按 values 的顺序把选项重新编号为 1..n，values 必须恰好包含字段的全部选项
func (r *OptionRegistry) Reorder(ctx context.Context, field string, values []string) ([]*form.Option, error) {
	var result []*form.Option
	err := r.store.WithTx(ctx, "option.reorder", func(tx store.Tx) error {
		if _, err := tx.GetField(ctx, field); err != nil {
			return err
		}
		options, err := tx.ListOptions(ctx, field)
		if err != nil {
			return err
		}
		if err := checkPermutation(options, values); err != nil {
			return err
		}

		byValue := make(map[string]*form.Option, len(options))
		for _, o := range options {
			byValue[o.Value] = o
		}
		result = make([]*form.Option, 0, len(values))
		for i, v := range values {
			o := byValue[v]
			if o.SortOrder != i+1 {
				o.SortOrder = i + 1
				if err := tx.UpdateOption(ctx, o); err != nil {
					return err
				}
			}
			result = append(result, o)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "options reordered", "field", field, "count", len(result))
	return result, nil
}

func checkPermutation(options []*form.Option, values []string) error {
	if len(values) != len(options) {
		return &form.InvalidArgumentError{Field: "values", Reason: "must list every option of the field exactly once"}
	}
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			return &form.InvalidArgumentError{Field: "values", Reason: "duplicate value " + v}
		}
		seen[v] = struct{}{}
		if !slices.ContainsFunc(options, func(o *form.Option) bool { return o.Value == v }) {
			return &form.InvalidArgumentError{Field: "values", Reason: "unknown value " + v}
		}
	}
	return nil
}
