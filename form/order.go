package form

import (
	"cmp"
	"slices"
)

// CompareLayout 规范布局顺序：分区步骤、字段步骤、排序号、字段名
func CompareLayout(a, b *Field) int {
	return cmp.Or(
		cmp.Compare(a.SectionStep, b.SectionStep),
		cmp.Compare(a.StepNumber, b.StepNumber),
		cmp.Compare(a.SortOrder, b.SortOrder),
		cmp.Compare(a.Name, b.Name),
	)
}

// SortLayout 按规范布局顺序原地排序
func SortLayout(fields []*Field) {
	slices.SortStableFunc(fields, CompareLayout)
}

// CompareSection 分区列表顺序：步骤号，同步骤按名称
func CompareSection(a, b *Section) int {
	return cmp.Or(
		cmp.Compare(a.StepNumber, b.StepNumber),
		cmp.Compare(a.Name, b.Name),
	)
}

func SortSections(sections []*Section) {
	slices.SortStableFunc(sections, CompareSection)
}

// CompareOption 选项顺序：排序号，同序号按值
func CompareOption(a, b *Option) int {
	return cmp.Or(
		cmp.Compare(a.SortOrder, b.SortOrder),
		cmp.Compare(a.Value, b.Value),
	)
}

func SortOptions(options []*Option) {
	slices.SortStableFunc(options, CompareOption)
}
