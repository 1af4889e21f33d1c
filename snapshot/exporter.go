package snapshot

import (
	"context"
	"time"

	"github.com/hatlonely/formlayout/form"
	"github.com/hatlonely/formlayout/log/logger"
	"github.com/hatlonely/formlayout/store"
)

// Exporter 导出分区布局快照，只读
type Exporter struct {
	reader  store.Reader
	ids     *IDGenerator
	archive Archive
	logger  logger.Logger

	now func() time.Time
}

// NewExporter archive 为 nil 时只生成快照不归档
func NewExporter(reader store.Reader, ids *IDGenerator, archive Archive, l logger.Logger) *Exporter {
	if ids == nil {
		ids = NewIDGeneratorWithOptions(nil)
	}
	if l == nil {
		l = logger.Nop{}
	}
	return &Exporter{reader: reader, ids: ids, archive: archive, logger: l, now: time.Now}
}

// Export 按布局顺序导出分区字段及其选项。配置了归档时同时写入归档
func (e *Exporter) Export(ctx context.Context, ns form.Namespace, section string) (*Snapshot, error) {
	if !ns.Valid() {
		return nil, &form.InvalidArgumentError{Field: "namespace", Reason: "unknown namespace " + string(ns)}
	}

	s := &Snapshot{
		ID:         e.ids.Generate(),
		Namespace:  ns,
		Section:    section,
		ExportedAt: e.now().UTC().Truncate(time.Second),
		Fields:     []*Field{},
	}
	if section != form.NoSection {
		sec, err := e.reader.GetSection(ctx, ns, section)
		if err != nil {
			return nil, err
		}
		s.SectionTitle = sec.Title
		s.SectionStep = sec.StepNumber
	}

	fields, err := e.reader.ListFields(ctx, s.Ref())
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		entry := &Field{
			Name:         f.Name,
			Label:        f.Label,
			Type:         f.Type,
			StepNumber:   f.StepNumber,
			SortOrder:    f.SortOrder,
			SectionStep:  s.SectionStep,
			SectionTitle: s.SectionTitle,
		}
		if f.Type.HasOptions() {
			options, err := e.reader.ListOptions(ctx, f.Name)
			if err != nil {
				return nil, err
			}
			for _, o := range options {
				entry.Options = append(entry.Options, &Option{Value: o.Value, Label: o.Label, SortOrder: o.SortOrder})
			}
		}
		s.Fields = append(s.Fields, entry)
	}

	if e.archive != nil {
		if err := e.archive.Put(ctx, s); err != nil {
			return nil, err
		}
	}
	e.logger.InfoContext(ctx, "layout exported", "ref", s.Ref().String(), "id", s.ID, "fields", len(s.Fields))
	return s, nil
}
