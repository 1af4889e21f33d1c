package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hatlonely/formlayout/form"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Snapshot 一个分区在某一时刻的布局快照
type Snapshot struct {
	ID           string         `json:"id" yaml:"id" msgpack:"id"`
	Namespace    form.Namespace `json:"namespace" yaml:"namespace" msgpack:"namespace"`
	Section      string         `json:"section" yaml:"section" msgpack:"section"`
	SectionTitle string         `json:"sectionTitle" yaml:"sectionTitle" msgpack:"sectionTitle"`
	SectionStep  int            `json:"sectionStep" yaml:"sectionStep" msgpack:"sectionStep"`
	ExportedAt   time.Time      `json:"exportedAt" yaml:"exportedAt" msgpack:"exportedAt"`
	Fields       []*Field       `json:"fields" yaml:"fields" msgpack:"fields"`
}

type Field struct {
	Name         string         `json:"name" yaml:"name" msgpack:"name"`
	Label        string         `json:"label" yaml:"label" msgpack:"label"`
	Type         form.FieldType `json:"type" yaml:"type" msgpack:"type"`
	StepNumber   int            `json:"stepNumber" yaml:"stepNumber" msgpack:"stepNumber"`
	SortOrder    int            `json:"sortOrder" yaml:"sortOrder" msgpack:"sortOrder"`
	SectionStep  int            `json:"sectionStep" yaml:"sectionStep" msgpack:"sectionStep"`
	SectionTitle string         `json:"sectionTitle" yaml:"sectionTitle" msgpack:"sectionTitle"`
	Options      []*Option      `json:"options,omitempty" yaml:"options,omitempty" msgpack:"options"`
}

type Option struct {
	Value     string `json:"value" yaml:"value" msgpack:"value"`
	Label     string `json:"label" yaml:"label" msgpack:"label"`
	SortOrder int    `json:"sortOrder" yaml:"sortOrder" msgpack:"sortOrder"`
}

func (s *Snapshot) Ref() form.SectionRef {
	return form.SectionRef{Namespace: s.Namespace, Section: s.Section}
}

// Format 快照文件格式
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat 解析格式名，yml 视为 yaml
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", &form.InvalidArgumentError{Field: "format", Reason: "unsupported format " + s}
}

func Encode(s *Snapshot, format Format) ([]byte, error) {
	switch format {
	case "", FormatJSON:
		buf, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return nil, errors.Wrap(err, "json.MarshalIndent failed")
		}
		return append(buf, '\n'), nil
	case FormatYAML:
		buf, err := yaml.Marshal(s)
		if err != nil {
			return nil, errors.Wrap(err, "yaml.Marshal failed")
		}
		return buf, nil
	}
	return nil, &form.InvalidArgumentError{Field: "format", Reason: "unsupported format " + string(format)}
}

func Decode(data []byte, format Format) (*Snapshot, error) {
	var s Snapshot
	switch format {
	case "", FormatJSON:
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, errors.Wrap(err, "json.Unmarshal failed")
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, errors.Wrap(err, "yaml.Unmarshal failed")
		}
	default:
		return nil, &form.InvalidArgumentError{Field: "format", Reason: "unsupported format " + string(format)}
	}
	return &s, nil
}

// FileName 默认文件名 field_layout_<section>_<YYYYmmdd_HHMMSS>.<ext>，未分配分区记为 unassigned
func FileName(s *Snapshot, format Format) string {
	section := s.Section
	if section == form.NoSection {
		section = "unassigned"
	}
	ext := string(format)
	if ext == "" {
		ext = string(FormatJSON)
	}
	return fmt.Sprintf("field_layout_%s_%s.%s", section, s.ExportedAt.Format("20060102_150405"), ext)
}

// WriteFile 将快照写入 dir 下的默认文件名，返回文件路径
func WriteFile(s *Snapshot, dir string, format Format) (string, error) {
	buf, err := Encode(s, format)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, "os.MkdirAll failed. directory: %s", dir)
	}
	path := filepath.Join(dir, FileName(s, format))
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return "", errors.Wrapf(err, "os.WriteFile failed. path: %s", path)
	}
	return path, nil
}
