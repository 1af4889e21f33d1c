package cfg

import (
	"fmt"
	"reflect"
	"strings"
)

// FieldInfo 配置项说明
type FieldInfo struct {
	Path         string // 字段路径，如 "store.sqlite.path"
	Type         string
	EnvName      string
	DefaultValue string
	Validate     string
}

// Fields 列出结构体所有叶子配置项，顺序与字段声明一致
func Fields(object any, envPrefix string) []FieldInfo {
	rt := reflect.TypeOf(object)
	for rt != nil && rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt == nil || rt.Kind() != reflect.Struct {
		return nil
	}

	var fields []FieldInfo
	var walk func(rt reflect.Type, path []string)
	walk = func(rt reflect.Type, path []string) {
		for i := 0; i < rt.NumField(); i++ {
			field := rt.Field(i)
			if !field.IsExported() || field.Tag.Get("cfg") == "-" {
				continue
			}
			next := append(append([]string{}, path...), fieldName(field))
			ft := field.Type
			for ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct && ft != durationType {
				walk(ft, next)
				continue
			}
			fields = append(fields, FieldInfo{
				Path:         strings.Join(next, "."),
				Type:         typeName(field.Type),
				EnvName:      EnvKey(envPrefix, next...),
				DefaultValue: field.Tag.Get("def"),
				Validate:     field.Tag.Get("validate"),
			})
		}
	}
	walk(rt, nil)
	return fields
}

// GenerateHelp 生成配置帮助信息
func GenerateHelp(object any, envPrefix string) string {
	fields := Fields(object, envPrefix)
	if len(fields) == 0 {
		return "未找到配置字段信息\n"
	}

	var sb strings.Builder
	sb.WriteString("配置参数说明：\n\n")
	for _, f := range fields {
		sb.WriteString(fmt.Sprintf("  %s (%s)\n", f.Path, f.Type))
		if envPrefix != "" {
			sb.WriteString(fmt.Sprintf("    环境变量: %s\n", f.EnvName))
		}
		if f.DefaultValue != "" {
			sb.WriteString(fmt.Sprintf("    默认值: %s\n", f.DefaultValue))
		}
		if f.Validate != "" {
			sb.WriteString(fmt.Sprintf("    校验: %s\n", f.Validate))
		}
	}
	return sb.String()
}

func typeName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Ptr:
		return "*" + typeName(t.Elem())
	case reflect.Slice:
		return "[]" + typeName(t.Elem())
	case reflect.Map:
		return "map[" + typeName(t.Key()) + "]" + typeName(t.Elem())
	}
	if t == durationType {
		return "time.Duration"
	}
	if t.Kind() == reflect.Interface {
		return "any"
	}
	if t.Kind() == reflect.Struct {
		return t.Name()
	}
	return t.Kind().String()
}
