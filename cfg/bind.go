package cfg

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// fieldName 字段在配置中的键名，取 cfg tag，没有时用字段名
func fieldName(field reflect.StructField) string {
	if tag := field.Tag.Get("cfg"); tag != "" && tag != "-" {
		return strings.Split(tag, ",")[0]
	}
	return field.Name
}

// bind 把解码后的数据写入结构体，键名大小写不敏感
func bind(src any, dst reflect.Value) error {
	if src == nil {
		return nil
	}

	if dst.Kind() == reflect.Ptr {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return bind(src, dst.Elem())
	}

	if dst.Type() == durationType {
		return bindDuration(src, dst)
	}

	sv := reflect.ValueOf(src)
	switch dst.Kind() {
	case reflect.Struct:
		m, ok := src.(map[string]any)
		if !ok {
			return errors.Errorf("cannot bind %T to %v", src, dst.Type())
		}
		return bindStruct(m, dst)
	case reflect.Map:
		if sv.Kind() != reflect.Map {
			return errors.Errorf("cannot bind %T to %v", src, dst.Type())
		}
		if dst.IsNil() {
			dst.Set(reflect.MakeMap(dst.Type()))
		}
		for _, key := range sv.MapKeys() {
			val := reflect.New(dst.Type().Elem()).Elem()
			if err := bind(sv.MapIndex(key).Interface(), val); err != nil {
				return errors.WithMessagef(err, "key %v", key.Interface())
			}
			k := reflect.ValueOf(fmt.Sprint(key.Interface())).Convert(dst.Type().Key())
			dst.SetMapIndex(k, val)
		}
		return nil
	case reflect.Slice:
		if sv.Kind() == reflect.String {
			return setValue(dst, sv.String())
		}
		if sv.Kind() != reflect.Slice {
			return errors.Errorf("cannot bind %T to %v", src, dst.Type())
		}
		slice := reflect.MakeSlice(dst.Type(), sv.Len(), sv.Len())
		for i := 0; i < sv.Len(); i++ {
			if err := bind(sv.Index(i).Interface(), slice.Index(i)); err != nil {
				return errors.WithMessagef(err, "index %d", i)
			}
		}
		dst.Set(slice)
		return nil
	case reflect.Interface:
		dst.Set(sv)
		return nil
	}

	// 环境变量和 ini 中的值是字符串
	if sv.Kind() == reflect.String {
		if dst.Kind() == reflect.String {
			dst.SetString(sv.String())
			return nil
		}
		return setValue(dst, sv.String())
	}
	if isNumber(sv.Kind()) && isNumber(dst.Kind()) || sv.Kind() == reflect.Bool && dst.Kind() == reflect.Bool {
		dst.Set(sv.Convert(dst.Type()))
		return nil
	}
	if dst.Kind() == reflect.String {
		dst.SetString(fmt.Sprint(src))
		return nil
	}
	return errors.Errorf("cannot bind %T to %v", src, dst.Type())
}

func isNumber(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Float64
}

func bindStruct(m map[string]any, dst reflect.Value) error {
	lower := make(map[string]any, len(m))
	for k, v := range m {
		lower[strings.ToLower(k)] = v
	}

	rt := dst.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fv := dst.Field(i)
		if !fv.CanSet() || field.Tag.Get("cfg") == "-" {
			continue
		}
		v, ok := lower[strings.ToLower(fieldName(field))]
		if !ok {
			continue
		}
		if err := bind(v, fv); err != nil {
			return errors.WithMessagef(err, "field %s", fieldName(field))
		}
	}
	return nil
}

// bindDuration 字符串按 time.ParseDuration 解析，数字按秒
func bindDuration(src any, dst reflect.Value) error {
	switch v := src.(type) {
	case string:
		return setValue(dst, v)
	case int:
		dst.SetInt(int64(time.Duration(v) * time.Second))
	case int64:
		dst.SetInt(int64(time.Duration(v) * time.Second))
	case uint64:
		dst.SetInt(int64(time.Duration(v) * time.Second))
	case float64:
		dst.SetInt(int64(v * float64(time.Second)))
	default:
		return errors.Errorf("cannot bind %T to time.Duration", src)
	}
	return nil
}
