// Package store 是卡片/卡组的关系型存储（sqlite 或 postgres）。
//
// 约束：
// - 参照完整性与 quantity 范围由数据库约束执行，这里不重复校验
// - SQL 统一用 ? 占位符书写，postgres 下在执行前改写为 $n
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// Driver 是 database/sql 的驱动名。
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// ParseDriver 接受 sqlite/postgres（以及常见别名 sqlite3/postgresql/pg）。
func ParseDriver(s string) (Driver, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sqlite", "sqlite3":
		return DriverSQLite, true
	case "postgres", "postgresql", "pg":
		return DriverPostgres, true
	default:
		return "", false
	}
}

// Store 封装 *sql.DB 与方言差异。
type Store struct {
	db     *sql.DB
	driver Driver
}

// Open 打开数据库并做方言相关的连接设置（不建表，建表见 Migrate）。
func Open(ctx context.Context, driver Driver, dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("数据库 DSN 不能为空")
	}
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("不支持的数据库驱动：%q", driver)
	}

	db, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败：%w", err)
	}
	s, err := newStore(ctx, db, driver, dsn)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func newStore(ctx context.Context, db *sql.DB, driver Driver, dsn string) (*Store, error) {
	if driver == DriverSQLite {
		// sqlite 的外键约束按连接生效；固定单连接保证 PRAGMA 对所有语句可见（:memory: 也只有一份库）。
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("启用外键约束失败：%w", err)
		}
		if !strings.Contains(dsn, ":memory:") {
			if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
				return nil, fmt.Errorf("设置 WAL 失败：%w", err)
			}
		}
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("连接数据库失败：%w", err)
	}
	return &Store{db: db, driver: driver}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Driver 返回当前方言。
func (s *Store) Driver() Driver { return s.driver }

// Migrate 建表（幂等）。
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("建表失败：%w", err)
	}
	return nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	_, err := s.db.ExecContext(ctx, rebind(s.driver, query), args...)
	return err
}

// rebind 把 ? 占位符改写为 postgres 的 $1..$n。查询里不含字符串字面量中的 ?。
func rebind(d Driver, query string) string {
	if d != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
