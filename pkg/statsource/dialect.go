package statsource

import (
	"fmt"
	"strconv"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	_ "modernc.org/sqlite" // SQLite 驱动
)

// Dialect 封装各数据库引擎的差异
type Dialect interface {
	// DriverName database/sql 驱动名
	DriverName() string

	// QuoteIdentifier 按方言引用表名/列名
	QuoteIdentifier(name string) string

	// Placeholder 第 n 个参数的占位符（从 1 开始）
	Placeholder(n int) string

	// ValidateDSN 打开连接池前检查连接串
	ValidateDSN(dsn string) error

	// MaxOpenConns 0 表示不限
	MaxOpenConns() int
}

// DialectFor 按驱动名查找方言
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "":
		return sqliteDialect{}, nil
	case "mysql":
		return mysqlDialect{}, nil
	case "postgres", "postgresql":
		return postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
}

type sqliteDialect struct{}

func (sqliteDialect) DriverName() string { return "sqlite" }

func (sqliteDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) ValidateDSN(dsn string) error {
	if dsn == "" {
		return fmt.Errorf("sqlite dsn is empty")
	}
	return nil
}

// 内存库每个连接相互独立，只能使用单连接
func (sqliteDialect) MaxOpenConns() int { return 1 }

type mysqlDialect struct{}

func (mysqlDialect) DriverName() string { return "mysql" }

func (mysqlDialect) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (mysqlDialect) Placeholder(int) string { return "?" }

func (mysqlDialect) ValidateDSN(dsn string) error {
	_, err := mysqldriver.ParseDSN(dsn)
	return err
}

func (mysqlDialect) MaxOpenConns() int { return 0 }

type postgresDialect struct{}

func (postgresDialect) DriverName() string { return "postgres" }

func (postgresDialect) QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

func (postgresDialect) Placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func (postgresDialect) ValidateDSN(dsn string) error {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		_, err := pq.ParseURL(dsn)
		return err
	}
	if dsn == "" {
		return fmt.Errorf("postgres dsn is empty")
	}
	return nil
}

func (postgresDialect) MaxOpenConns() int { return 0 }
