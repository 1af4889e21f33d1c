package cfg

import (
	"os"
	"reflect"
	"strings"
	"unicode"
)

// LookupEnvFunc 读取环境变量，测试中可替换
type LookupEnvFunc func(key string) (string, bool)

// EnvKey 配置路径对应的环境变量名
// EnvKey("FORMLAYOUT", "store", "sqlite", "busyTimeout") => FORMLAYOUT_STORE_SQLITE_BUSY_TIMEOUT
func EnvKey(prefix string, path ...string) string {
	parts := make([]string, 0, len(path)+1)
	if prefix != "" {
		parts = append(parts, strings.ToUpper(prefix))
	}
	for _, p := range path {
		parts = append(parts, snakeUpper(p))
	}
	return strings.Join(parts, "_")
}

func snakeUpper(s string) string {
	var sb strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				sb.WriteByte('_')
			}
		}
		if r == '-' || r == '.' {
			sb.WriteByte('_')
			continue
		}
		sb.WriteRune(unicode.ToUpper(r))
	}
	return sb.String()
}

// overlayEnv 按结构体的叶子字段查找环境变量，命中的值写入 m 的对应路径
func overlayEnv(m map[string]any, rt reflect.Type, prefix string, lookup LookupEnvFunc) {
	walkLeaves(rt, nil, func(path []string) {
		v, ok := lookup(EnvKey(prefix, path...))
		if !ok {
			return
		}
		setPath(m, path, v)
	})
}

func walkLeaves(rt reflect.Type, path []string, fn func(path []string)) {
	for rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct || rt == durationType {
		fn(path)
		return
	}
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() || field.Tag.Get("cfg") == "-" {
			continue
		}
		ft := field.Type
		for ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		// 结构体切片无法用单个环境变量表示
		if ft.Kind() == reflect.Slice && ft.Elem().Kind() != reflect.String && ft.Elem().Kind() > reflect.Float64 {
			continue
		}
		if ft.Kind() == reflect.Map || ft.Kind() == reflect.Interface {
			continue
		}
		next := append(append([]string{}, path...), fieldName(field))
		walkLeaves(field.Type, next, fn)
	}
}

// setPath 按路径写入嵌套 map，已有键按大小写不敏感匹配
func setPath(m map[string]any, path []string, value any) {
	for i, key := range path {
		k := matchKey(m, key)
		if i == len(path)-1 {
			m[k] = value
			return
		}
		child, ok := m[k].(map[string]any)
		if !ok {
			child = map[string]any{}
			m[k] = child
		}
		m = child
	}
}

func matchKey(m map[string]any, key string) string {
	if _, ok := m[key]; ok {
		return key
	}
	for k := range m {
		if strings.EqualFold(k, key) {
			return k
		}
	}
	return key
}

var defaultLookupEnv LookupEnvFunc = os.LookupEnv
