package registry

import (
	"context"

	"github.com/hatlonely/formlayout/form"
)

// FormView 一个命名空间的渲染视图
type FormView struct {
	Namespace form.Namespace `json:"namespace" yaml:"namespace"`
	Sections  []*SectionView `json:"sections" yaml:"sections"`
	Rules     FormRules      `json:"rules" yaml:"rules"`
}

type SectionView struct {
	form.Section `yaml:",inline"`
	Fields       []*FieldView `json:"fields" yaml:"fields"`
}

type FieldView struct {
	form.Field `yaml:",inline"`
	Options    []*form.Option `json:"options,omitempty" yaml:"options,omitempty"`
}

// FormRules 渲染字段的结构摘要
type FormRules struct {
	RequiredFields []string                  `json:"requiredFields" yaml:"requiredFields"`
	FieldTypes     map[string]form.FieldType `json:"fieldTypes" yaml:"fieldTypes"`
	CheckboxGroups []string                  `json:"checkboxGroups" yaml:"checkboxGroups"`
}

// Form 按分区顺序返回可见分区中可见且已定位的字段，未分配分区和未定位字段不渲染
func (r *FieldRegistry) Form(ctx context.Context, ns form.Namespace) (*FormView, error) {
	if !ns.Valid() {
		return nil, &form.InvalidArgumentError{Field: "namespace", Reason: "unknown namespace " + string(ns)}
	}

	sections, err := r.store.ListSections(ctx, ns)
	if err != nil {
		return nil, err
	}
	fields, err := r.store.ListNamespaceFields(ctx, ns)
	if err != nil {
		return nil, err
	}

	bySection := map[string][]*form.Field{}
	for _, f := range fields {
		if f.Section == form.NoSection || !f.Positioned() || !f.IsVisible {
			continue
		}
		bySection[f.Section] = append(bySection[f.Section], f)
	}

	view := &FormView{
		Namespace: ns,
		Sections:  []*SectionView{},
		Rules:     FormRules{RequiredFields: []string{}, FieldTypes: map[string]form.FieldType{}, CheckboxGroups: []string{}},
	}
	for _, s := range sections {
		if !s.IsVisible {
			continue
		}
		sv := &SectionView{Section: *s, Fields: []*FieldView{}}
		for _, f := range bySection[s.Name] {
			fv := &FieldView{Field: *f}
			if f.Type.HasOptions() {
				if fv.Options, err = r.store.ListOptions(ctx, f.Name); err != nil {
					return nil, err
				}
			}
			sv.Fields = append(sv.Fields, fv)

			if f.IsRequired {
				view.Rules.RequiredFields = append(view.Rules.RequiredFields, f.Name)
			}
			view.Rules.FieldTypes[f.Name] = f.Type
			if f.Type == form.FieldTypeCheckbox {
				view.Rules.CheckboxGroups = append(view.Rules.CheckboxGroups, f.Name)
			}
		}
		view.Sections = append(view.Sections, sv)
	}
	return view, nil
}
