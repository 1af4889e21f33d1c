package layout

import (
	"context"
	"fmt"
	"slices"

	"github.com/hatlonely/formlayout/form"
	"github.com/hatlonely/formlayout/store"
)

type IssueKind string

const (
	// IssueDuplicate 多个字段共用同一个非零排序号
	IssueDuplicate IssueKind = "duplicate"
	// IssueGap 已定位字段的排序号不等于 {1..N}
	IssueGap IssueKind = "gap"
	// IssueSentinel 排序号为 0 的字段，仅提示
	IssueSentinel IssueKind = "sentinel"
	// IssueNegative 排序号为负数，只会由外部写入产生
	IssueNegative IssueKind = "negative"
)

type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityError Severity = "error"
)

// Issue 一条诊断结果
type Issue struct {
	Kind     IssueKind `json:"kind" yaml:"kind"`
	Severity Severity  `json:"severity" yaml:"severity"`
	// Position 重复的排序号
	Position int `json:"position,omitempty" yaml:"position,omitempty"`
	// Missing 缺失的排序号
	Missing []int `json:"missing,omitempty" yaml:"missing,omitempty"`
	// Fields 涉及的字段名
	Fields  []string `json:"fields,omitempty" yaml:"fields,omitempty"`
	Message string   `json:"message" yaml:"message"`
}

// Report 一个作用域的诊断报告
type Report struct {
	Ref    form.SectionRef `json:"ref" yaml:"ref"`
	Fields []*form.Field   `json:"fields" yaml:"fields"`
	Issues []Issue         `json:"issues" yaml:"issues"`
}

// Healthy 没有 error 级别的问题
func (r *Report) Healthy() bool {
	return len(r.Errors()) == 0
}

func (r *Report) Errors() []Issue {
	var issues []Issue
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			issues = append(issues, issue)
		}
	}
	return issues
}

// Kinds 报告中出现的问题类型，按出现顺序
func (r *Report) Kinds() []IssueKind {
	var kinds []IssueKind
	for _, issue := range r.Issues {
		if !slices.Contains(kinds, issue.Kind) {
			kinds = append(kinds, issue.Kind)
		}
	}
	return kinds
}

// Analyzer 只读诊断，不修改任何数据
type Analyzer struct {
	reader store.Reader
}

func NewAnalyzer(reader store.Reader) *Analyzer {
	return &Analyzer{reader: reader}
}

// Analyze 直接从存储读取作用域内的字段并诊断，不经过布局缓存。
// 发现的问题作为数据返回，只有读取失败才返回错误
func (a *Analyzer) Analyze(ctx context.Context, ns form.Namespace, section string) (*Report, error) {
	ref := form.SectionRef{Namespace: ns, Section: section}
	if !ns.Valid() {
		return nil, &form.InvalidArgumentError{Field: "namespace", Reason: "unknown namespace " + string(ns)}
	}
	if section != form.NoSection {
		if _, err := a.reader.GetSection(ctx, ns, section); err != nil {
			return nil, err
		}
	}

	fields, err := a.reader.ListFields(ctx, ref)
	if err != nil {
		return nil, err
	}
	return AnalyzeFields(ref, fields), nil
}

// AnalyzeFields 诊断一组已按布局顺序排列的字段
func AnalyzeFields(ref form.SectionRef, fields []*form.Field) *Report {
	report := &Report{Ref: ref, Fields: fields}

	var negative, sentinel []string
	holders := map[int][]string{}
	positioned := 0
	for _, f := range fields {
		switch {
		case f.SortOrder < 0:
			negative = append(negative, f.Name)
		case f.SortOrder == form.Unassigned:
			sentinel = append(sentinel, f.Name)
		default:
			positioned++
			holders[f.SortOrder] = append(holders[f.SortOrder], f.Name)
		}
	}

	positions := make([]int, 0, len(holders))
	for p := range holders {
		positions = append(positions, p)
	}
	slices.Sort(positions)

	for _, p := range positions {
		if names := holders[p]; len(names) > 1 {
			slices.Sort(names)
			report.Issues = append(report.Issues, Issue{
				Kind:     IssueDuplicate,
				Severity: SeverityError,
				Position: p,
				Fields:   names,
				Message:  fmt.Sprintf("sort order %d is shared by %v", p, names),
			})
		}
	}

	var missing []int
	for p := 1; p <= positioned; p++ {
		if _, ok := holders[p]; !ok {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		report.Issues = append(report.Issues, Issue{
			Kind:     IssueGap,
			Severity: SeverityError,
			Missing:  missing,
			Message:  fmt.Sprintf("missing sort orders %v in [1, %d]", missing, positioned),
		})
	}

	if len(negative) > 0 {
		report.Issues = append(report.Issues, Issue{
			Kind:     IssueNegative,
			Severity: SeverityError,
			Fields:   negative,
			Message:  fmt.Sprintf("negative sort order on %v", negative),
		})
	}

	if len(sentinel) > 0 {
		report.Issues = append(report.Issues, Issue{
			Kind:     IssueSentinel,
			Severity: SeverityInfo,
			Fields:   sentinel,
			Message:  fmt.Sprintf("unassigned fields %v", sentinel),
		})
	}

	return report
}
