package store

import (
	"time"

	"github.com/hatlonely/formlayout/form"
)

// SectionModel 分区表
type SectionModel struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement;column:id"`
	Namespace   string    `gorm:"size:16;not null;uniqueIndex:uk_section_ns_name,priority:1;column:namespace"`
	Name        string    `gorm:"size:64;not null;uniqueIndex:uk_section_ns_name,priority:2;column:name"`
	Title       string    `gorm:"size:255;not null;column:title"`
	StepNumber  int       `gorm:"not null;column:step_number"`
	IsRequired  bool      `gorm:"not null;column:is_required"`
	IsVisible   bool      `gorm:"not null;column:is_visible"`
	Description string    `gorm:"type:text;column:description"`
	CreatedAt   time.Time `gorm:"autoCreateTime;column:created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime;column:updated_at"`
}

func (SectionModel) TableName() string {
	return "form_sections"
}

// FieldModel 字段表。sort_order 不加唯一约束，外部写入可能破坏连续性，由分析器发现
type FieldModel struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement;column:id"`
	Name       string    `gorm:"size:64;not null;uniqueIndex:uk_field_name;column:name"`
	Label      string    `gorm:"size:255;not null;column:label"`
	Type       string    `gorm:"size:16;not null;column:type"`
	Namespace  string    `gorm:"size:16;not null;index:idx_field_scope,priority:1;column:namespace"`
	Section    string    `gorm:"size:64;not null;index:idx_field_scope,priority:2;column:section"`
	StepNumber int       `gorm:"not null;column:step_number"`
	SortOrder  int       `gorm:"not null;index:idx_field_scope,priority:3;column:sort_order"`
	IsRequired bool      `gorm:"not null;column:is_required"`
	IsVisible  bool      `gorm:"not null;column:is_visible"`
	HelpText   string    `gorm:"type:text;column:help_text"`
	CreatedAt  time.Time `gorm:"autoCreateTime;column:created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime;column:updated_at"`
}

func (FieldModel) TableName() string {
	return "form_fields"
}

// OptionModel 选项表
type OptionModel struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement;column:id"`
	Field     string    `gorm:"size:64;not null;uniqueIndex:uk_option_field_value,priority:1;column:field"`
	Namespace string    `gorm:"size:16;not null;column:namespace"`
	Value     string    `gorm:"size:255;not null;uniqueIndex:uk_option_field_value,priority:2;column:value"`
	Label     string    `gorm:"size:255;not null;column:label"`
	SortOrder int       `gorm:"not null;column:sort_order"`
	CreatedAt time.Time `gorm:"autoCreateTime;column:created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;column:updated_at"`
}

func (OptionModel) TableName() string {
	return "form_options"
}

// fieldRow 字段关联分区步骤号后的查询结果
type fieldRow struct {
	FieldModel
	SectionStep int `gorm:"column:section_step"`
}

func sectionFromModel(m *SectionModel) *form.Section {
	return &form.Section{
		Namespace:   form.Namespace(m.Namespace),
		Name:        m.Name,
		Title:       m.Title,
		StepNumber:  m.StepNumber,
		IsRequired:  m.IsRequired,
		IsVisible:   m.IsVisible,
		Description: m.Description,
	}
}

func sectionToModel(s *form.Section) *SectionModel {
	return &SectionModel{
		Namespace:   string(s.Namespace),
		Name:        s.Name,
		Title:       s.Title,
		StepNumber:  s.StepNumber,
		IsRequired:  s.IsRequired,
		IsVisible:   s.IsVisible,
		Description: s.Description,
	}
}

func fieldFromModel(m *FieldModel, sectionStep int) *form.Field {
	return &form.Field{
		Name:        m.Name,
		Label:       m.Label,
		Type:        form.FieldType(m.Type),
		Namespace:   form.Namespace(m.Namespace),
		Section:     m.Section,
		StepNumber:  m.StepNumber,
		SortOrder:   m.SortOrder,
		IsRequired:  m.IsRequired,
		IsVisible:   m.IsVisible,
		HelpText:    m.HelpText,
		SectionStep: sectionStep,
	}
}

func fieldToModel(f *form.Field) *FieldModel {
	return &FieldModel{
		Name:       f.Name,
		Label:      f.Label,
		Type:       string(f.Type),
		Namespace:  string(f.Namespace),
		Section:    f.Section,
		StepNumber: f.StepNumber,
		SortOrder:  f.SortOrder,
		IsRequired: f.IsRequired,
		IsVisible:  f.IsVisible,
		HelpText:   f.HelpText,
	}
}

func optionFromModel(m *OptionModel) *form.Option {
	return &form.Option{
		Field:     m.Field,
		Namespace: form.Namespace(m.Namespace),
		Value:     m.Value,
		Label:     m.Label,
		SortOrder: m.SortOrder,
	}
}

func optionToModel(o *form.Option) *OptionModel {
	return &OptionModel{
		Field:     o.Field,
		Namespace: string(o.Namespace),
		Value:     o.Value,
		Label:     o.Label,
		SortOrder: o.SortOrder,
	}
}
