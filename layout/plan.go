package layout

import (
	"cmp"
	"context"
	"slices"

	"github.com/hatlonely/formlayout/form"
	"github.com/hatlonely/formlayout/store"
)

// Change 一个字段的目标状态，Field 为变更前的记录
type Change struct {
	Field     *form.Field
	Section   string
	SortOrder int
}

// Moved 字段是否换了分区
func (c Change) Moved() bool {
	return c.Section != c.Field.Section
}

func (c Change) noop() bool {
	return !c.Moved() && c.SortOrder == c.Field.SortOrder
}

// Plan 一次重排操作需要写入的变更，只包含实际发生变化的行
type Plan struct {
	Op      string
	Changes []Change
}

func (p *Plan) add(f *form.Field, section string, sortOrder int) {
	c := Change{Field: f, Section: section, SortOrder: sortOrder}
	if c.noop() {
		return
	}
	p.Changes = append(p.Changes, c)
}

func (p *Plan) Empty() bool {
	return len(p.Changes) == 0
}

// Refs 受影响的排序作用域
func (p *Plan) Refs() []form.SectionRef {
	var refs []form.SectionRef
	for _, c := range p.Changes {
		for _, ref := range []form.SectionRef{c.Field.Ref(), {Namespace: c.Field.Namespace, Section: c.Section}} {
			if !slices.Contains(refs, ref) {
				refs = append(refs, ref)
			}
		}
	}
	return refs
}

// Apply 在事务中写入变更
func (p *Plan) Apply(ctx context.Context, tx store.Tx) error {
	for _, c := range p.Changes {
		if c.Moved() {
			f := *c.Field
			f.Section = c.Section
			f.SortOrder = c.SortOrder
			if err := tx.UpdateField(ctx, &f); err != nil {
				return err
			}
			continue
		}
		if err := tx.SetSortOrder(ctx, c.Field.Name, c.SortOrder); err != nil {
			return err
		}
	}
	return nil
}

// PositionedCount 作用域内已分配位置的字段数，exclude 不计入
func PositionedCount(fields []*form.Field, exclude string) int {
	n := 0
	for _, f := range fields {
		if f.Positioned() && f.Name != exclude {
			n++
		}
	}
	return n
}

// ReorderedFields 自动重排后的字段顺序
//
// preserve 为 true 时已定位字段按原排序号（同号按字段步骤、名称），未定位字段按标签追加在后；
// 否则全部按标签排序。同标签按名称
func ReorderedFields(fields []*form.Field, preserve bool) []*form.Field {
	byLabel := func(a, b *form.Field) int {
		return cmp.Or(cmp.Compare(a.Label, b.Label), cmp.Compare(a.Name, b.Name))
	}

	if !preserve {
		ordered := slices.Clone(fields)
		slices.SortStableFunc(ordered, byLabel)
		return ordered
	}

	var positioned, rest []*form.Field
	for _, f := range fields {
		if f.Positioned() {
			positioned = append(positioned, f)
		} else {
			rest = append(rest, f)
		}
	}
	slices.SortStableFunc(positioned, func(a, b *form.Field) int {
		return cmp.Or(
			cmp.Compare(a.SortOrder, b.SortOrder),
			cmp.Compare(a.StepNumber, b.StepNumber),
			cmp.Compare(a.Name, b.Name),
		)
	})
	slices.SortStableFunc(rest, byLabel)
	return append(positioned, rest...)
}

// PlanReorder 把作用域内全部字段编号为 1..N
func PlanReorder(fields []*form.Field, preserve bool) *Plan {
	plan := &Plan{Op: "reorder"}
	for i, f := range ReorderedFields(fields, preserve) {
		plan.add(f, f.Section, i+1)
	}
	return plan
}

// PlanInsert 把 field 插入 target 分区的 position 位置
//
// target 为目标作用域的字段，source 为字段当前所在作用域的字段；
// 字段从其他分区带有位置移入时，source 分区同时压缩
func PlanInsert(source, target []*form.Field, field *form.Field, section string, position int) (*Plan, error) {
	if field.Section == section && field.Positioned() {
		return nil, &form.InvalidPositionError{
			Op: "insert", Field: field.Name, Position: position,
			Reason: "field is already positioned in this section, use move instead",
		}
	}

	n := PositionedCount(target, field.Name)
	if position < 1 || position > n+1 {
		return nil, &form.InvalidPositionError{Op: "insert", Field: field.Name, Position: position, Min: 1, Max: n + 1}
	}

	plan := &Plan{Op: "insert"}
	if field.Section != section && field.Positioned() {
		plan.Changes = append(plan.Changes, compact(source, field)...)
	}
	for _, f := range target {
		if f.Name == field.Name || !f.Positioned() {
			continue
		}
		if f.SortOrder >= position {
			plan.add(f, f.Section, f.SortOrder+1)
		}
	}
	plan.add(field, section, position)
	return plan, nil
}

// PlanRemove 把字段置为未分配，并压缩其后的字段。未定位字段返回空计划
func PlanRemove(fields []*form.Field, field *form.Field) *Plan {
	plan := &Plan{Op: "remove"}
	if !field.Positioned() {
		return plan
	}
	plan.Changes = append(plan.Changes, compact(fields, field)...)
	plan.add(field, field.Section, form.Unassigned)
	return plan
}

func compact(fields []*form.Field, field *form.Field) []Change {
	var changes []Change
	for _, f := range fields {
		if f.Name == field.Name || !f.Positioned() {
			continue
		}
		if f.SortOrder > field.SortOrder {
			changes = append(changes, Change{Field: f, Section: f.Section, SortOrder: f.SortOrder - 1})
		}
	}
	return changes
}

// PlanMove 在同一分区内把字段移到 position
func PlanMove(fields []*form.Field, field *form.Field, position int) (*Plan, error) {
	if !field.Positioned() {
		return nil, &form.InvalidPositionError{
			Op: "move", Field: field.Name, Position: position,
			Reason: "field is not positioned, use insert instead",
		}
	}

	n := PositionedCount(fields, "")
	if position < 1 || position > n {
		return nil, &form.InvalidPositionError{Op: "move", Field: field.Name, Position: position, Min: 1, Max: n}
	}

	plan := &Plan{Op: "move"}
	current := field.SortOrder
	if position == current {
		return plan, nil
	}
	for _, f := range fields {
		if f.Name == field.Name || !f.Positioned() {
			continue
		}
		switch {
		case current < position && f.SortOrder > current && f.SortOrder <= position:
			plan.add(f, f.Section, f.SortOrder-1)
		case position < current && f.SortOrder >= position && f.SortOrder < current:
			plan.add(f, f.Section, f.SortOrder+1)
		}
	}
	plan.add(field, field.Section, position)
	return plan, nil
}

// Preview 把计划应用到字段副本上，返回新的布局顺序，不写存储
func (p *Plan) Preview(fields []*form.Field) []*form.Field {
	index := make(map[string]Change, len(p.Changes))
	for _, c := range p.Changes {
		index[c.Field.Name] = c
	}
	out := make([]*form.Field, 0, len(fields))
	for _, f := range fields {
		clone := *f
		if c, ok := index[f.Name]; ok {
			clone.Section = c.Section
			clone.SortOrder = c.SortOrder
		}
		out = append(out, &clone)
	}
	form.SortLayout(out)
	return out
}
