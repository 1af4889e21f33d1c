package form

import (
	"strings"
)

// Namespace 表单命名空间，排序与唯一性约束都在命名空间内生效
type Namespace string

const (
	NamespacePrimary   Namespace = "primary"
	NamespaceSecondary Namespace = "secondary"
)

// ParseNamespace 解析命名空间，兼容历史表单标记 A / S
func ParseNamespace(s string) (Namespace, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "primary", "a":
		return NamespacePrimary, nil
	case "secondary", "s":
		return NamespaceSecondary, nil
	}
	return "", &InvalidArgumentError{Field: "namespace", Reason: "unknown namespace " + s}
}

func (n Namespace) Valid() bool {
	return n == NamespacePrimary || n == NamespaceSecondary
}

func (n Namespace) String() string {
	return string(n)
}

// FieldType 字段类型
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeEmail    FieldType = "email"
	FieldTypePhone    FieldType = "phone"
	FieldTypeURL      FieldType = "url"
	FieldTypeSelect   FieldType = "select"
	FieldTypeCheckbox FieldType = "checkbox"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeNumber   FieldType = "number"
)

var fieldTypes = map[FieldType]struct{}{
	FieldTypeText:     {},
	FieldTypeEmail:    {},
	FieldTypePhone:    {},
	FieldTypeURL:      {},
	FieldTypeSelect:   {},
	FieldTypeCheckbox: {},
	FieldTypeTextarea: {},
	FieldTypeNumber:   {},
}

func (t FieldType) Valid() bool {
	_, ok := fieldTypes[t]
	return ok
}

// HasOptions 只有 select 和 checkbox 类型的字段可以挂载选项
func (t FieldType) HasOptions() bool {
	return t == FieldTypeSelect || t == FieldTypeCheckbox
}

// Unassigned 位置哨兵值，表示字段未分配位置或已被移除
const Unassigned = 0

// NoSection 未分配分区的字段所在的分区名
const NoSection = ""

// Section 表单分区
type Section struct {
	Namespace   Namespace `json:"namespace" yaml:"namespace" msgpack:"namespace" validate:"required,oneof=primary secondary"`
	Name        string    `json:"name" yaml:"name" msgpack:"name" validate:"required,max=64,identifier"`
	Title       string    `json:"title" yaml:"title" msgpack:"title" validate:"required,max=255"`
	StepNumber  int       `json:"stepNumber" yaml:"stepNumber" msgpack:"stepNumber" validate:"min=0"`
	IsRequired  bool      `json:"isRequired" yaml:"isRequired" msgpack:"isRequired"`
	IsVisible   bool      `json:"isVisible" yaml:"isVisible" msgpack:"isVisible"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty" msgpack:"description"`
}

// Field 表单字段
type Field struct {
	Name       string    `json:"name" yaml:"name" msgpack:"name" validate:"required,max=64,identifier"`
	Label      string    `json:"label" yaml:"label" msgpack:"label" validate:"required,max=255"`
	Type       FieldType `json:"type" yaml:"type" msgpack:"type" validate:"required,fieldtype"`
	Namespace  Namespace `json:"namespace" yaml:"namespace" msgpack:"namespace" validate:"required,oneof=primary secondary"`
	Section    string    `json:"section" yaml:"section" msgpack:"section" validate:"omitempty,max=64,identifier"`
	StepNumber int       `json:"stepNumber" yaml:"stepNumber" msgpack:"stepNumber" validate:"min=0"`
	SortOrder  int       `json:"sortOrder" yaml:"sortOrder" msgpack:"sortOrder" validate:"min=0"`
	IsRequired bool      `json:"isRequired" yaml:"isRequired" msgpack:"isRequired"`
	IsVisible  bool      `json:"isVisible" yaml:"isVisible" msgpack:"isVisible"`
	HelpText   string    `json:"helpText,omitempty" yaml:"helpText,omitempty" msgpack:"helpText"`

	// 只读，由查询时关联分区得到
	SectionStep int `json:"sectionStep" yaml:"sectionStep" msgpack:"sectionStep"`
}

// Positioned 字段是否已分配位置
func (f *Field) Positioned() bool {
	return f.SortOrder > Unassigned
}

func (f *Field) Ref() SectionRef {
	return SectionRef{Namespace: f.Namespace, Section: f.Section}
}

// Option 字段选项
type Option struct {
	Field     string    `json:"field" yaml:"field" msgpack:"field" validate:"required"`
	Namespace Namespace `json:"namespace" yaml:"namespace" msgpack:"namespace" validate:"required,oneof=primary secondary"`
	Value     string    `json:"value" yaml:"value" msgpack:"value" validate:"required,max=255"`
	Label     string    `json:"label" yaml:"label" msgpack:"label" validate:"required,max=255"`
	SortOrder int       `json:"sortOrder" yaml:"sortOrder" msgpack:"sortOrder" validate:"min=0"`
}

// SectionRef 一个排序作用域：命名空间 + 分区
type SectionRef struct {
	Namespace Namespace `json:"namespace" msgpack:"namespace"`
	Section   string    `json:"section" msgpack:"section"`
}

func (r SectionRef) String() string {
	if r.Section == NoSection {
		return string(r.Namespace) + "/-"
	}
	return string(r.Namespace) + "/" + r.Section
}

// SectionPatch 分区的部分更新，nil 表示不修改
type SectionPatch struct {
	Title       *string
	StepNumber  *int
	IsRequired  *bool
	IsVisible   *bool
	Description *string
}

func (p *SectionPatch) Apply(s *Section) {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.StepNumber != nil {
		s.StepNumber = *p.StepNumber
	}
	if p.IsRequired != nil {
		s.IsRequired = *p.IsRequired
	}
	if p.IsVisible != nil {
		s.IsVisible = *p.IsVisible
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
}

// FieldPatch 字段的部分更新。SortOrder 只能通过重排操作修改
type FieldPatch struct {
	Label      *string
	Type       *FieldType
	Section    *string
	StepNumber *int
	IsRequired *bool
	IsVisible  *bool
	HelpText   *string
}

func (p *FieldPatch) Apply(f *Field) {
	if p.Label != nil {
		f.Label = *p.Label
	}
	if p.Type != nil {
		f.Type = *p.Type
	}
	if p.Section != nil {
		f.Section = *p.Section
	}
	if p.StepNumber != nil {
		f.StepNumber = *p.StepNumber
	}
	if p.IsRequired != nil {
		f.IsRequired = *p.IsRequired
	}
	if p.IsVisible != nil {
		f.IsVisible = *p.IsVisible
	}
	if p.HelpText != nil {
		f.HelpText = *p.HelpText
	}
}

// OptionPatch 选项的部分更新
type OptionPatch struct {
	Label     *string
	SortOrder *int
}

// Ptr 返回值的指针，用于构造 patch
func Ptr[T any](v T) *T {
	return &v
}
