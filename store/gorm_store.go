package store

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/hatlonely/formlayout/form"
	"github.com/pkg/errors"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// SQLiteOptions sqlite 配置
type SQLiteOptions struct {
	// 数据库文件路径
	Path string `cfg:"path" def:"formlayout.db"`

	// 获取写锁的等待时间
	BusyTimeout time.Duration `cfg:"busyTimeout" def:"5s"`
}

// MySQLOptions mysql 配置
type MySQLOptions struct {
	Host     string            `cfg:"host" def:"localhost"`
	Port     int               `cfg:"port" def:"3306"`
	User     string            `cfg:"user" def:"root"`
	Password string            `cfg:"password"`
	Database string            `cfg:"database" def:"formlayout"`
	Params   map[string]string `cfg:"params"`

	MaxOpenConns    int           `cfg:"maxOpenConns" def:"10"`
	MaxIdleConns    int           `cfg:"maxIdleConns" def:"5"`
	ConnMaxLifetime time.Duration `cfg:"connMaxLifetime" def:"1h"`
}

// DSN 生成 go-sql-driver/mysql 格式的连接串
func (o *MySQLOptions) DSN() string {
	c := mysql.NewConfig()
	c.User = o.User
	c.Passwd = o.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
	c.DBName = o.Database
	c.ParseTime = true
	// 更新未改变的行时也返回匹配行数
	c.ClientFoundRows = true
	c.Params = o.Params
	return c.FormatDSN()
}

func (o *SQLiteOptions) DSN() string {
	timeout := o.BusyTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	sep := "?"
	if strings.Contains(o.Path, "?") {
		sep = "&"
	}
	// 写事务在 BEGIN 时就获取写锁，同一作用域的写入串行执行
	return fmt.Sprintf("%s%s_busy_timeout=%d&_txlock=immediate&_foreign_keys=1", o.Path, sep, timeout.Milliseconds())
}

// GormStore 基于 gorm 的存储，支持 sqlite 和 mysql
type GormStore struct {
	gormReader

	retry    RetryOptions
	lockRows bool
}

func NewGormStoreWithOptions(options *Options) (*GormStore, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	var db *gorm.DB
	var err error
	switch options.Driver {
	case "", "sqlite":
		if options.SQLite.Path == "" {
			return nil, errors.New("sqlite path is required")
		}
		db, err = gorm.Open(sqlite.Open(options.SQLite.DSN()), gormConfig)
	case "mysql":
		db, err = gorm.Open(gormmysql.Open(options.MySQL.DSN()), gormConfig)
	default:
		return nil, errors.Errorf("unsupported gorm driver: %s", options.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "gorm.Open failed")
	}

	if options.Driver == "mysql" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errors.Wrap(err, "db.DB failed")
		}
		sqlDB.SetMaxOpenConns(options.MySQL.MaxOpenConns)
		sqlDB.SetMaxIdleConns(options.MySQL.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(options.MySQL.ConnMaxLifetime)
	}

	s := &GormStore{
		gormReader: gormReader{db: db},
		retry:      options.Retry,
		// sqlite 用 _txlock=immediate 串行化写事务，不支持 FOR UPDATE
		lockRows: db.Dialector.Name() != "sqlite",
	}

	if !options.SkipMigrate {
		if err := db.AutoMigrate(&SectionModel{}, &FieldModel{}, &OptionModel{}); err != nil {
			return nil, errors.Wrap(err, "auto migrate failed")
		}
	}

	return s, nil
}

func (s *GormStore) WithTx(ctx context.Context, op string, fn func(tx Tx) error) error {
	return withRetry(ctx, &s.retry, op, func(ctx context.Context) error {
		return s.runTx(ctx, fn)
	})
}

func (s *GormStore) runTx(ctx context.Context, fn func(tx Tx) error) error {
	db := s.db.WithContext(ctx).Begin()
	if db.Error != nil {
		return errors.Wrap(db.Error, "begin transaction failed")
	}

	defer func() {
		if r := recover(); r != nil {
			db.Rollback()
			panic(r)
		}
	}()

	if err := fn(&gormTx{gormReader: gormReader{db: db}, lockRows: s.lockRows}); err != nil {
		db.Rollback()
		return err
	}

	if err := db.Commit().Error; err != nil {
		return errors.Wrap(err, "commit transaction failed")
	}
	return nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrap(err, "db.DB failed")
	}
	return sqlDB.Close()
}

// DB 底层 gorm 句柄
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

type gormReader struct {
	db *gorm.DB
}

func (r gormReader) GetSection(ctx context.Context, ns form.Namespace, name string) (*form.Section, error) {
	var m SectionModel
	err := r.db.WithContext(ctx).Where("namespace = ? AND name = ?", string(ns), name).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &form.NotFoundError{Entity: "section", Key: form.SectionRef{Namespace: ns, Section: name}.String()}
	}
	if err != nil {
		return nil, errors.Wrap(err, "query section failed")
	}
	return sectionFromModel(&m), nil
}

func (r gormReader) ListSections(ctx context.Context, ns form.Namespace) ([]*form.Section, error) {
	var ms []SectionModel
	if err := r.db.WithContext(ctx).Where("namespace = ?", string(ns)).Order("step_number, name").Find(&ms).Error; err != nil {
		return nil, errors.Wrap(err, "query sections failed")
	}
	sections := make([]*form.Section, 0, len(ms))
	for i := range ms {
		sections = append(sections, sectionFromModel(&ms[i]))
	}
	return sections, nil
}

func (r gormReader) fieldQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("form_fields AS f").
		Select("f.*, COALESCE(s.step_number, 0) AS section_step").
		Joins("LEFT JOIN form_sections AS s ON s.namespace = f.namespace AND s.name = f.section")
}

func (r gormReader) scanFields(q *gorm.DB) ([]*form.Field, error) {
	var rows []fieldRow
	if err := q.Order("section_step, f.step_number, f.sort_order, f.name").Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "query fields failed")
	}
	fields := make([]*form.Field, 0, len(rows))
	for i := range rows {
		fields = append(fields, fieldFromModel(&rows[i].FieldModel, rows[i].SectionStep))
	}
	form.SortLayout(fields)
	return fields, nil
}

func (r gormReader) GetField(ctx context.Context, name string) (*form.Field, error) {
	fields, err := r.scanFields(r.fieldQuery(ctx).Where("f.name = ?", name))
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, &form.NotFoundError{Entity: "field", Key: name}
	}
	return fields[0], nil
}

func (r gormReader) ListFields(ctx context.Context, ref form.SectionRef) ([]*form.Field, error) {
	return r.scanFields(r.fieldQuery(ctx).Where("f.namespace = ? AND f.section = ?", string(ref.Namespace), ref.Section))
}

func (r gormReader) ListNamespaceFields(ctx context.Context, ns form.Namespace) ([]*form.Field, error) {
	return r.scanFields(r.fieldQuery(ctx).Where("f.namespace = ?", string(ns)))
}

func (r gormReader) GetOption(ctx context.Context, field string, value string) (*form.Option, error) {
	var m OptionModel
	err := r.db.WithContext(ctx).Where("field = ? AND value = ?", field, value).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &form.NotFoundError{Entity: "option", Key: field + "=" + value}
	}
	if err != nil {
		return nil, errors.Wrap(err, "query option failed")
	}
	return optionFromModel(&m), nil
}

func (r gormReader) ListOptions(ctx context.Context, field string) ([]*form.Option, error) {
	var ms []OptionModel
	if err := r.db.WithContext(ctx).Where("field = ?", field).Order("sort_order, value").Find(&ms).Error; err != nil {
		return nil, errors.Wrap(err, "query options failed")
	}
	options := make([]*form.Option, 0, len(ms))
	for i := range ms {
		options = append(options, optionFromModel(&ms[i]))
	}
	return options, nil
}

type gormTx struct {
	gormReader

	lockRows bool
}

func (t *gormTx) LockScope(ctx context.Context, ref form.SectionRef) ([]*form.Field, error) {
	q := t.db.WithContext(ctx).Where("namespace = ? AND section = ?", string(ref.Namespace), ref.Section)
	if t.lockRows {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var ms []FieldModel
	if err := q.Find(&ms).Error; err != nil {
		return nil, errors.Wrap(err, "lock scope failed")
	}

	step := 0
	if ref.Section != form.NoSection {
		var sm SectionModel
		err := t.db.WithContext(ctx).Where("namespace = ? AND name = ?", string(ref.Namespace), ref.Section).Take(&sm).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrap(err, "query section failed")
		}
		step = sm.StepNumber
	}

	fields := make([]*form.Field, 0, len(ms))
	for i := range ms {
		fields = append(fields, fieldFromModel(&ms[i], step))
	}
	form.SortLayout(fields)
	return fields, nil
}

func (t *gormTx) CreateSection(ctx context.Context, section *form.Section) error {
	err := t.db.WithContext(ctx).Create(sectionToModel(section)).Error
	if isDuplicateKey(err) {
		return &form.DuplicateNameError{Entity: "section", Name: section.Name}
	}
	return errors.Wrap(err, "create section failed")
}

func (t *gormTx) UpdateSection(ctx context.Context, section *form.Section) error {
	res := t.db.WithContext(ctx).Model(&SectionModel{}).
		Where("namespace = ? AND name = ?", string(section.Namespace), section.Name).
		Updates(map[string]any{
			"title":       section.Title,
			"step_number": section.StepNumber,
			"is_required": section.IsRequired,
			"is_visible":  section.IsVisible,
			"description": section.Description,
		})
	if res.Error != nil {
		return errors.Wrap(res.Error, "update section failed")
	}
	if res.RowsAffected == 0 {
		return &form.NotFoundError{Entity: "section", Key: form.SectionRef{Namespace: section.Namespace, Section: section.Name}.String()}
	}
	return nil
}

func (t *gormTx) DeleteSection(ctx context.Context, ns form.Namespace, name string) error {
	res := t.db.WithContext(ctx).Where("namespace = ? AND name = ?", string(ns), name).Delete(&SectionModel{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete section failed")
	}
	if res.RowsAffected == 0 {
		return &form.NotFoundError{Entity: "section", Key: form.SectionRef{Namespace: ns, Section: name}.String()}
	}
	return nil
}

func (t *gormTx) ReassignSection(ctx context.Context, ns form.Namespace, from string, to string) (int64, error) {
	res := t.db.WithContext(ctx).Model(&FieldModel{}).
		Where("namespace = ? AND section = ?", string(ns), from).
		Update("section", to)
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "reassign section failed")
	}
	return res.RowsAffected, nil
}

func (t *gormTx) CreateField(ctx context.Context, field *form.Field) error {
	err := t.db.WithContext(ctx).Create(fieldToModel(field)).Error
	if isDuplicateKey(err) {
		return &form.DuplicateNameError{Entity: "field", Name: field.Name}
	}
	return errors.Wrap(err, "create field failed")
}

func (t *gormTx) UpdateField(ctx context.Context, field *form.Field) error {
	res := t.db.WithContext(ctx).Model(&FieldModel{}).
		Where("name = ?", field.Name).
		Updates(map[string]any{
			"label":       field.Label,
			"type":        string(field.Type),
			"section":     field.Section,
			"step_number": field.StepNumber,
			"sort_order":  field.SortOrder,
			"is_required": field.IsRequired,
			"is_visible":  field.IsVisible,
			"help_text":   field.HelpText,
		})
	if res.Error != nil {
		return errors.Wrap(res.Error, "update field failed")
	}
	if res.RowsAffected == 0 {
		return &form.NotFoundError{Entity: "field", Key: field.Name}
	}
	return nil
}

func (t *gormTx) SetSortOrder(ctx context.Context, name string, sortOrder int) error {
	res := t.db.WithContext(ctx).Model(&FieldModel{}).Where("name = ?", name).Update("sort_order", sortOrder)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "set sort order of %s failed", name)
	}
	if res.RowsAffected == 0 {
		return &form.NotFoundError{Entity: "field", Key: name}
	}
	return nil
}

func (t *gormTx) DeleteField(ctx context.Context, name string) error {
	res := t.db.WithContext(ctx).Where("name = ?", name).Delete(&FieldModel{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete field failed")
	}
	if res.RowsAffected == 0 {
		return &form.NotFoundError{Entity: "field", Key: name}
	}
	return nil
}

func (t *gormTx) CreateOption(ctx context.Context, option *form.Option) error {
	err := t.db.WithContext(ctx).Create(optionToModel(option)).Error
	if isDuplicateKey(err) {
		return &form.DuplicateNameError{Entity: "option", Name: option.Field + "=" + option.Value}
	}
	return errors.Wrap(err, "create option failed")
}

func (t *gormTx) UpdateOption(ctx context.Context, option *form.Option) error {
	res := t.db.WithContext(ctx).Model(&OptionModel{}).
		Where("field = ? AND value = ?", option.Field, option.Value).
		Updates(map[string]any{
			"label":      option.Label,
			"sort_order": option.SortOrder,
		})
	if res.Error != nil {
		return errors.Wrap(res.Error, "update option failed")
	}
	if res.RowsAffected == 0 {
		return &form.NotFoundError{Entity: "option", Key: option.Field + "=" + option.Value}
	}
	return nil
}

func (t *gormTx) DeleteOption(ctx context.Context, field string, value string) error {
	res := t.db.WithContext(ctx).Where("field = ? AND value = ?", field, value).Delete(&OptionModel{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete option failed")
	}
	if res.RowsAffected == 0 {
		return &form.NotFoundError{Entity: "option", Key: field + "=" + value}
	}
	return nil
}

func (t *gormTx) DeleteOptions(ctx context.Context, field string) error {
	return errors.Wrap(t.db.WithContext(ctx).Where("field = ?", field).Delete(&OptionModel{}).Error, "delete options failed")
}
