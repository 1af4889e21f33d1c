package cfg

import (
	"os"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/hatlonely/formlayout/cfg/decoder"
	"github.com/pkg/errors"
)

// Loader 把配置文件、环境变量和默认值合并到结构体
//
// 优先级从低到高：def tag 默认值 < 配置文件 < 环境变量
type Loader struct {
	// EnvPrefix 环境变量前缀，为空时不读取环境变量
	EnvPrefix string
	// LookupEnv 读取环境变量的函数，默认 os.LookupEnv
	LookupEnv LookupEnvFunc
}

// Load 读取配置文件到 object，path 为空时只使用环境变量和默认值
func Load(path string, envPrefix string, object any) error {
	return (&Loader{EnvPrefix: envPrefix}).Load(path, object)
}

// LoadBytes 按指定格式解码 data 到 object
func LoadBytes(data []byte, format string, envPrefix string, object any) error {
	return (&Loader{EnvPrefix: envPrefix}).LoadBytes(data, format, object)
}

func (l *Loader) Load(path string, object any) error {
	if path == "" {
		return l.apply(map[string]any{}, object)
	}

	d, err := decoder.NewDecoderByPath(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read config file %s", path)
	}
	m, err := d.Decode(data)
	if err != nil {
		return errors.WithMessagef(err, "config file %s", path)
	}
	return l.apply(m, object)
}

func (l *Loader) LoadBytes(data []byte, format string, object any) error {
	d, err := decoder.NewDecoder(format)
	if err != nil {
		return err
	}
	m, err := d.Decode(data)
	if err != nil {
		return err
	}
	return l.apply(m, object)
}

func (l *Loader) apply(m map[string]any, object any) error {
	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New("object must be a non-nil pointer")
	}

	if l.EnvPrefix != "" {
		lookup := l.LookupEnv
		if lookup == nil {
			lookup = defaultLookupEnv
		}
		overlayEnv(m, rv.Elem().Type(), l.EnvPrefix, lookup)
	}

	if err := bind(m, rv.Elem()); err != nil {
		return errors.WithMessage(err, "failed to bind config")
	}
	if err := SetDefaults(object); err != nil {
		return err
	}
	return Validate(object)
}

var validate = validator.New()

// Validate 按 validate tag 校验配置，nil 指针不校验
func Validate(object any) error {
	rv := reflect.ValueOf(object)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	if err := validate.Struct(rv.Interface()); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return nil
}
