package store

import (
	"context"

	"github.com/hatlonely/formlayout/form"
	"github.com/pkg/errors"
)

// Reader 只读访问。事务外的读取可能读到旧数据
type Reader interface {
	GetSection(ctx context.Context, ns form.Namespace, name string) (*form.Section, error)
	ListSections(ctx context.Context, ns form.Namespace) ([]*form.Section, error)

	GetField(ctx context.Context, name string) (*form.Field, error)
	// ListFields 返回一个排序作用域内的全部字段（含哨兵），按规范布局顺序
	ListFields(ctx context.Context, ref form.SectionRef) ([]*form.Field, error)
	// ListNamespaceFields 返回命名空间内全部字段，按规范布局顺序
	ListNamespaceFields(ctx context.Context, ns form.Namespace) ([]*form.Field, error)

	GetOption(ctx context.Context, field string, value string) (*form.Option, error)
	ListOptions(ctx context.Context, field string) ([]*form.Option, error)
}

// Tx 事务内的读写。所有写操作在事务提交后才对外可见
type Tx interface {
	Reader

	// LockScope 锁定并返回一个排序作用域内的全部字段
	LockScope(ctx context.Context, ref form.SectionRef) ([]*form.Field, error)

	CreateSection(ctx context.Context, section *form.Section) error
	UpdateSection(ctx context.Context, section *form.Section) error
	DeleteSection(ctx context.Context, ns form.Namespace, name string) error
	// ReassignSection 把 from 分区的字段全部移到 to 分区，保留排序号
	ReassignSection(ctx context.Context, ns form.Namespace, from string, to string) (int64, error)

	CreateField(ctx context.Context, field *form.Field) error
	UpdateField(ctx context.Context, field *form.Field) error
	SetSortOrder(ctx context.Context, name string, sortOrder int) error
	DeleteField(ctx context.Context, name string) error

	CreateOption(ctx context.Context, option *form.Option) error
	UpdateOption(ctx context.Context, option *form.Option) error
	DeleteOption(ctx context.Context, field string, value string) error
	DeleteOptions(ctx context.Context, field string) error
}

// Store 持久化存储
type Store interface {
	Reader

	// WithTx 在一个事务中执行 fn。冲突时按配置重试，fn 可能被执行多次。
	// fn 返回的领域错误原样返回，其他失败包装为 form.TransactionError
	WithTx(ctx context.Context, op string, fn func(tx Tx) error) error

	Close() error
}

// Options 存储配置
type Options struct {
	// 驱动：sqlite, mysql, postgres
	Driver string `cfg:"driver" def:"sqlite" validate:"oneof=sqlite mysql postgres"`

	SQLite   SQLiteOptions   `cfg:"sqlite"`
	MySQL    MySQLOptions    `cfg:"mysql"`
	Postgres PostgresOptions `cfg:"postgres"`

	// 冲突重试
	Retry RetryOptions `cfg:"retry"`

	// 启动时跳过建表
	SkipMigrate bool `cfg:"skipMigrate"`
}

// NewStoreWithOptions 根据驱动创建存储
func NewStoreWithOptions(ctx context.Context, options *Options) (Store, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	switch options.Driver {
	case "", "sqlite", "mysql":
		return NewGormStoreWithOptions(options)
	case "postgres":
		return NewPGStoreWithOptions(ctx, options)
	}
	return nil, errors.Errorf("unsupported driver: %s", options.Driver)
}
