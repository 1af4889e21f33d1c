package layout

import (
	"testing"

	"github.com/hatlonely/formlayout/form"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAnalyzeFields(t *testing.T) {
	ref := form.SectionRef{Namespace: form.NamespacePrimary, Section: "s"}

	Convey("AnalyzeFields", t, func() {
		Convey("连续无重复", func() {
			report := AnalyzeFields(ref, mk("s", "a", 1, "b", 2, "c", 3))
			So(report.Issues, ShouldBeEmpty)
			So(report.Healthy(), ShouldBeTrue)
		})

		Convey("空分区", func() {
			report := AnalyzeFields(ref, nil)
			So(report.Healthy(), ShouldBeTrue)
			So(report.Issues, ShouldBeEmpty)
		})

		Convey("缺号", func() {
			report := AnalyzeFields(ref, mk("s", "a", 1, "b", 2, "d", 4))
			So(report.Healthy(), ShouldBeFalse)
			So(len(report.Issues), ShouldEqual, 1)
			So(report.Issues[0].Kind, ShouldEqual, IssueGap)
			So(report.Issues[0].Missing, ShouldResemble, []int{3})
		})

		Convey("重复同时导致缺号", func() {
			report := AnalyzeFields(ref, mk("s", "a", 1, "b", 1, "c", 2))
			So(report.Kinds(), ShouldResemble, []IssueKind{IssueDuplicate, IssueGap})
			So(report.Issues[0].Position, ShouldEqual, 1)
			So(report.Issues[0].Fields, ShouldResemble, []string{"a", "b"})
			So(report.Issues[1].Missing, ShouldResemble, []int{3})
		})

		Convey("未分配字段只提示", func() {
			report := AnalyzeFields(ref, mk("s", "a", 1, "b", 2, "z", 0))
			So(report.Healthy(), ShouldBeTrue)
			So(len(report.Issues), ShouldEqual, 1)
			So(report.Issues[0].Kind, ShouldEqual, IssueSentinel)
			So(report.Issues[0].Severity, ShouldEqual, SeverityInfo)
			So(report.Issues[0].Fields, ShouldResemble, []string{"z"})
		})

		Convey("负数排序号", func() {
			report := AnalyzeFields(ref, mk("s", "a", 1, "n", -2))
			So(report.Healthy(), ShouldBeFalse)
			So(report.Kinds(), ShouldResemble, []IssueKind{IssueNegative})
			So(report.Errors()[0].Fields, ShouldResemble, []string{"n"})
		})

		Convey("报告保留布局顺序", func() {
			fields := mk("s", "b", 2, "a", 1, "z", 0)
			report := AnalyzeFields(ref, fields)
			So(report.Fields[0].Name, ShouldEqual, "z")
			So(report.Fields[1].Name, ShouldEqual, "a")
			So(report.Ref, ShouldResemble, ref)
		})
	})
}
