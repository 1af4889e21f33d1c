package layout

import (
	"testing"

	"github.com/hatlonely/formlayout/form"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mk(section string, pairs ...any) []*form.Field {
	var fields []*form.Field
	for i := 0; i+1 < len(pairs); i += 2 {
		name := pairs[i].(string)
		fields = append(fields, &form.Field{
			Name:      name,
			Label:     name,
			Type:      form.FieldTypeText,
			Namespace: form.NamespacePrimary,
			Section:   section,
			SortOrder: pairs[i+1].(int),
		})
	}
	form.SortLayout(fields)
	return fields
}

func get(fields []*form.Field, name string) *form.Field {
	for _, f := range fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func layoutOf(fields []*form.Field) map[string]int {
	out := map[string]int{}
	for _, f := range fields {
		out[f.Name] = f.SortOrder
	}
	return out
}

func TestPlanInsert(t *testing.T) {
	fields := mk("s", "A", 1, "B", 2, "C", 3, "E", 0)

	plan, err := PlanInsert(fields, fields, get(fields, "E"), "s", 2)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 1, "E": 2, "B": 3, "C": 4}, layoutOf(plan.Preview(fields)))
	// A 不变，不写入
	assert.Len(t, plan.Changes, 3)

	plan, err = PlanInsert(fields, fields, get(fields, "E"), "s", 4)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 1, "B": 2, "C": 3, "E": 4}, layoutOf(plan.Preview(fields)))

	for _, p := range []int{0, 5, -1} {
		_, err = PlanInsert(fields, fields, get(fields, "E"), "s", p)
		var e *form.InvalidPositionError
		require.ErrorAs(t, err, &e)
		assert.Equal(t, 1, e.Min)
		assert.Equal(t, 4, e.Max)
	}

	_, err = PlanInsert(fields, fields, get(fields, "B"), "s", 1)
	assert.True(t, form.IsInvalidPosition(err))
}

func TestPlanInsertAcrossSections(t *testing.T) {
	source := mk("contact", "X", 1, "Y", 2, "Z", 3)
	target := mk("business", "A", 1, "B", 2)

	plan, err := PlanInsert(source, target, get(source, "Y"), "business", 2)
	require.NoError(t, err)

	changes := map[string]Change{}
	for _, c := range plan.Changes {
		changes[c.Field.Name] = c
	}
	assert.Len(t, changes, 3)
	assert.Equal(t, 2, changes["Z"].SortOrder)
	assert.Equal(t, 3, changes["B"].SortOrder)
	assert.Equal(t, "business", changes["Y"].Section)
	assert.Equal(t, 2, changes["Y"].SortOrder)
	assert.True(t, changes["Y"].Moved())
	assert.ElementsMatch(t, []form.SectionRef{
		{Namespace: form.NamespacePrimary, Section: "contact"},
		{Namespace: form.NamespacePrimary, Section: "business"},
	}, plan.Refs())

	unplaced := mk("contact", "W", 0)
	plan, err = PlanInsert(unplaced, target, unplaced[0], "business", 3)
	require.NoError(t, err)
	assert.Len(t, plan.Changes, 1)
}

func TestPlanRemove(t *testing.T) {
	fields := mk("s", "A", 1, "E", 2, "B", 3, "C", 4)

	plan := PlanRemove(fields, get(fields, "B"))
	assert.Equal(t, map[string]int{"A": 1, "E": 2, "B": 0, "C": 3}, layoutOf(plan.Preview(fields)))

	fields = mk("s", "A", 1, "B", 0)
	assert.True(t, PlanRemove(fields, get(fields, "B")).Empty())
}

func TestPlanMove(t *testing.T) {
	fields := mk("s", "A", 1, "B", 2, "C", 3, "D", 4, "S", 0)

	plan, err := PlanMove(fields, get(fields, "D"), 1)
	require.NoError(t, err)
	moved := plan.Preview(fields)
	assert.Equal(t, map[string]int{"D": 1, "A": 2, "B": 3, "C": 4, "S": 0}, layoutOf(moved))

	plan, err = PlanMove(moved, get(moved, "D"), 4)
	require.NoError(t, err)
	assert.Equal(t, layoutOf(fields), layoutOf(plan.Preview(moved)))

	plan, err = PlanMove(fields, get(fields, "B"), 2)
	require.NoError(t, err)
	assert.True(t, plan.Empty())

	plan, err = PlanMove(fields, get(fields, "A"), 3)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"B": 1, "C": 2, "A": 3, "D": 4, "S": 0}, layoutOf(plan.Preview(fields)))

	_, err = PlanMove(fields, get(fields, "A"), 5)
	assert.True(t, form.IsInvalidPosition(err))
	_, err = PlanMove(fields, get(fields, "A"), 0)
	assert.True(t, form.IsInvalidPosition(err))
	_, err = PlanMove(fields, get(fields, "S"), 1)
	assert.True(t, form.IsInvalidPosition(err))
}

func TestReorderedFields(t *testing.T) {
	fields := mk("s", "A", 1, "E", 2, "C", 3, "B", 0)
	assert.Equal(t, map[string]int{"A": 1, "E": 2, "C": 3, "B": 4}, layoutOf(PlanReorder(fields, true).Preview(fields)))

	fields = mk("s", "c", 2, "a", 2, "b", 5, "z", 0, "y", 0, "n", -1)
	fields[0].Label = "Zeta"
	ordered := ReorderedFields(fields, true)
	var got []string
	for _, f := range ordered {
		got = append(got, f.Name)
	}
	assert.Equal(t, []string{"a", "c", "b", "n", "y", "z"}, got)

	ordered = ReorderedFields(mk("s", "b", 1, "a", 2, "c", 0), false)
	got = got[:0]
	for _, f := range ordered {
		got = append(got, f.Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)

	assert.True(t, PlanReorder(mk("s", "a", 1, "b", 2), true).Empty())
	assert.True(t, PlanReorder(nil, true).Empty())
}
