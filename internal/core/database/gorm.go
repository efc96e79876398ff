package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Opts struct {
	Driver                 string
	DSN                    string
	Username               string
	Password               string
	MaxOpenConns           int
	MaxIdleConns           int
	ConnMaxLifetimeMin     int
	ServerSelectionTimeout time.Duration // 建连 + 首次 ping 的上限
	SocketTimeout          time.Duration // 单次读写的上限
	HealthInterval         time.Duration
	LogLevel               string
	// Logger gorm 日志输出；为空时用 gorm 默认（stdout）
	Logger *log.Logger
	// NowFunc 覆盖 gorm 的时间戳来源（测试用）
	NowFunc func() time.Time
}

var ErrUnsupportedDriver = errors.New("unsupported database driver")

func (o Opts) dialector() (gorm.Dialector, error) {
	switch o.Driver {
	case "postgres":
		return postgres.Open(o.DSN), nil
	case "mysql":
		dsn := normalizeMySQLDSN(o.DSN, o.Username, o.Password)
		dsn = withMySQLTimeouts(dsn, o.ServerSelectionTimeout, o.SocketTimeout)
		return mysql.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(o.DSN), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, o.Driver)
	}
}

func (o Opts) gormLogger() logger.Interface {
	lvl := logger.Warn
	switch o.LogLevel {
	case "silent":
		lvl = logger.Silent
	case "error":
		lvl = logger.Error
	case "info":
		lvl = logger.Info
	}
	if o.Logger == nil {
		return logger.Default.LogMode(lvl)
	}
	return logger.New(o.Logger, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  lvl,
		IgnoreRecordNotFoundError: true,
	})
}

// NewGorm 打开连接池并在 ctx 内 ping 一次；ping 失败则关闭并返回错误。
func NewGorm(ctx context.Context, o Opts) (*gorm.DB, error) {
	dial, err := o.dialector()
	if err != nil {
		return nil, err
	}
	// gorm 自带的 Ping 不带 ctx，会绕过 ServerSelectionTimeout
	cfg := &gorm.Config{Logger: o.gormLogger(), DisableAutomaticPing: true}
	if o.NowFunc != nil {
		cfg.NowFunc = o.NowFunc
	}
	db, err := gorm.Open(dial, cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		if c, ok := db.ConnPool.(interface{ Close() error }); ok {
			_ = c.Close()
		}
		return nil, err
	}
	sqlDB.SetMaxOpenConns(o.MaxOpenConns)
	sqlDB.SetMaxIdleConns(o.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(o.ConnMaxLifetimeMin) * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	db = db.
		Session(&gorm.Session{
			PrepareStmt:            true, // 预编译缓存，提高 QPS
			CreateBatchSize:        200,  // 批量写
			SkipDefaultTransaction: true, // 只在需要时手动开 Tx
		})
	return db, nil
}

// withMySQLTimeouts 给 go-sql-driver DSN 补上 dial/read/write 超时（已有则保留）
func withMySQLTimeouts(dsn string, dial, sock time.Duration) string {
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return dsn // 交给驱动报错
	}
	if cfg.Timeout == 0 && dial > 0 {
		cfg.Timeout = dial
	}
	if cfg.ReadTimeout == 0 && sock > 0 {
		cfg.ReadTimeout = sock
	}
	if cfg.WriteTimeout == 0 && sock > 0 {
		cfg.WriteTimeout = sock
	}
	return cfg.FormatDSN()
}

func normalizeMySQLDSN(input, userOverride, passOverride string) string {
	in := strings.TrimSpace(input)
	if in == "" {
		return in
	}

	// jdbc:mysql://... → mysql://...
	if strings.HasPrefix(in, "jdbc:mysql://") {
		in = strings.TrimPrefix(in, "jdbc:")
	}
	// 已经是 go-sql-driver 的 DSN（user:pass@tcp(...)），不做改写
	if !strings.HasPrefix(in, "mysql://") {
		return in
	}

	u, err := url.Parse(in)
	if err != nil {
		return in
	}

	hostport := u.Host
	dbname := strings.TrimPrefix(u.Path, "/")

	var user, pass string
	if u.User != nil {
		user = u.User.Username()
		pass, _ = u.User.Password()
	}
	q := u.Query()
	if q.Get("user") != "" {
		user = q.Get("user")
		q.Del("user")
	}
	if q.Get("password") != "" {
		pass = q.Get("password")
		q.Del("password")
	}
	if userOverride != "" {
		user = userOverride
	}
	if passOverride != "" {
		pass = passOverride
	}

	// JDBC 参数适配
	if q.Get("characterEncoding") != "" && q.Get("charset") == "" {
		q.Set("charset", q.Get("characterEncoding"))
	}
	q.Del("characterEncoding")
	q.Del("useUnicode")
	q.Del("zeroDateTimeBehavior")

	if v := strings.ToLower(q.Get("useSSL")); v != "" {
		switch v {
		case "true", "1":
			q.Set("tls", "true")
		case "skip-verify":
			q.Set("tls", "skip-verify")
		case "preferred":
			q.Set("tls", "preferred")
		default:
			q.Set("tls", "false")
		}
		q.Del("useSSL")
	}

	if tz := q.Get("serverTimezone"); tz != "" {
		q.Set("loc", tz)
		q.Del("serverTimezone")
	}

	if q.Get("parseTime") == "" {
		q.Set("parseTime", "true")
	}
	if q.Get("charset") == "" {
		q.Set("charset", "utf8mb4")
	}

	cred := user
	if pass != "" {
		cred += ":" + pass
	}
	if cred != "" {
		cred += "@"
	}

	dsn := fmt.Sprintf("%stcp(%s)/%s", cred, hostport, dbname)
	if enc := q.Encode(); enc != "" {
		dsn += "?" + enc
	}
	return dsn
}

// MaskDSN 隐去密码后用于日志
func MaskDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.User != nil {
		if _, ok := u.User.Password(); ok {
			// Redacted 用 xxxxx 占位，统一成 ****
			return strings.Replace(u.Redacted(), ":xxxxx@", ":****@", 1)
		}
	}
	masked := dsn
	if at := strings.Index(masked, "@"); at > 0 {
		if colon := strings.Index(masked[:at], ":"); colon > 0 {
			masked = masked[:colon+1] + "****" + masked[at:]
		}
	}
	return masked
}
