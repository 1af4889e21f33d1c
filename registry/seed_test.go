package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hatlonely/formlayout/form"
	. "github.com/smartystreets/goconvey/convey"
)

const seedYAML = `
namespace: A
sections:
  - name: contact
    title: Contact
    stepNumber: 1
    isVisible: true
  - name: business
    title: Business
    isVisible: true
fields:
  - name: email
    label: Email
    type: email
    section: contact
    sortOrder: 1
    isRequired: true
    isVisible: true
  - name: industry
    label: Industry
    type: select
    section: business
    sortOrder: 1
    isVisible: true
    options:
      - value: retail
        label: Retail
      - value: finance
        label: Finance
  - name: notes
    label: Notes
    type: textarea
    namespace: secondary
`

const seedJSON = `{
  "namespace": "secondary",
  "sections": [{"name": "intro", "title": "Intro", "stepNumber": 1, "isVisible": true}],
  "fields": [
    {"name": "goal", "label": "Goal", "type": "checkbox", "section": "intro", "sortOrder": 1, "isVisible": true,
     "options": [{"value": "growth", "label": "Growth"}]}
  ]
}`

func TestParseSeed(t *testing.T) {
	Convey("ParseSeed", t, func() {
		file, err := ParseSeed([]byte(seedYAML), "yaml")
		So(err, ShouldBeNil)
		So(file.Namespace, ShouldEqual, form.Namespace("A"))
		So(len(file.Sections), ShouldEqual, 2)
		So(len(file.Fields), ShouldEqual, 3)
		So(file.Fields[1].Type, ShouldEqual, form.FieldTypeSelect)
		So(len(file.Fields[1].Options), ShouldEqual, 2)

		file, err = ParseSeed([]byte(seedJSON), "json")
		So(err, ShouldBeNil)
		So(file.Fields[0].Name, ShouldEqual, "goal")
		So(file.Fields[0].Options[0].Value, ShouldEqual, "growth")

		_, err = ParseSeed([]byte(seedJSON), "xml")
		So(err, ShouldNotBeNil)
		_, err = ParseSeed([]byte("{"), "json")
		So(err, ShouldNotBeNil)
	})

	Convey("LoadSeedFile", t, func() {
		path := filepath.Join(t.TempDir(), "seed.yml")
		So(os.WriteFile(path, []byte(seedYAML), 0644), ShouldBeNil)

		file, err := LoadSeedFile(path)
		So(err, ShouldBeNil)
		So(len(file.Fields), ShouldEqual, 3)

		_, err = LoadSeedFile(filepath.Join(t.TempDir(), "missing.yaml"))
		So(err, ShouldNotBeNil)
	})
}

func TestSeeder(t *testing.T) {
	ctx := context.Background()

	Convey("Seeder", t, func() {
		f := newFixture(t)

		file, err := ParseSeed([]byte(seedYAML), "yaml")
		So(err, ShouldBeNil)

		result, err := f.seeder.Seed(ctx, file, nil)
		So(err, ShouldBeNil)
		So(*result, ShouldResemble, SeedResult{Sections: 2, Fields: 3, Options: 2})

		Convey("导入的数据", func() {
			sections, err := f.sections.List(ctx, form.NamespacePrimary)
			So(err, ShouldBeNil)
			So(len(sections), ShouldEqual, 2)
			So(sections[1].Name, ShouldEqual, "business")
			So(sections[1].StepNumber, ShouldEqual, 2)

			notes, err := f.fields.Get(ctx, "notes")
			So(err, ShouldBeNil)
			So(notes.Namespace, ShouldEqual, form.NamespaceSecondary)
			So(notes.Section, ShouldEqual, form.NoSection)

			options, err := f.options.List(ctx, "industry")
			So(err, ShouldBeNil)
			So(len(options), ShouldEqual, 2)
			So(options[0].Value, ShouldEqual, "retail")
			So(options[1].SortOrder, ShouldEqual, 2)
		})

		Convey("重复导入时报错并整体回滚", func() {
			again, err := ParseSeed([]byte(seedYAML), "yaml")
			So(err, ShouldBeNil)
			again.Sections = append(again.Sections, &form.Section{Name: "extra", Title: "Extra"})

			_, err = f.seeder.Seed(ctx, again, nil)
			So(form.IsDuplicateName(err), ShouldBeTrue)

			_, err = f.sections.Get(ctx, form.NamespacePrimary, "extra")
			So(form.IsNotFound(err), ShouldBeTrue)
		})

		Convey("SkipExisting 跳过已存在的条目", func() {
			again, err := ParseSeed([]byte(seedYAML), "yaml")
			So(err, ShouldBeNil)
			again.Sections = append(again.Sections, &form.Section{Name: "extra", Title: "Extra"})

			result, err := f.seeder.Seed(ctx, again, &SeedOptions{SkipExisting: true})
			So(err, ShouldBeNil)
			So(*result, ShouldResemble, SeedResult{Sections: 1, Skipped: 7})

			extra, err := f.sections.Get(ctx, form.NamespacePrimary, "extra")
			So(err, ShouldBeNil)
			So(extra.StepNumber, ShouldEqual, 3)
		})

		Convey("非法条目在事务前被拒绝", func() {
			bad, err := ParseSeed([]byte(seedJSON), "json")
			So(err, ShouldBeNil)
			bad.Fields[0].Type = "date"

			_, err = f.seeder.Seed(ctx, bad, nil)
			So(form.IsInvalidArgument(err), ShouldBeTrue)

			_, err = f.sections.Get(ctx, form.NamespaceSecondary, "intro")
			So(form.IsNotFound(err), ShouldBeTrue)
		})

		Convey("选项挂在非选择类型字段上", func() {
			bad, err := ParseSeed([]byte(`{"namespace": "primary", "fields": [{"name": "city", "label": "City", "type": "text", "options": [{"value": "x", "label": "X"}]}]}`), "json")
			So(err, ShouldBeNil)

			_, err = f.seeder.Seed(ctx, bad, nil)
			So(form.IsInvalidArgument(err), ShouldBeTrue)

			_, err = f.fields.Get(ctx, "city")
			So(form.IsNotFound(err), ShouldBeTrue)
		})
	})
}
