package config

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// 默认数据库配置 - 可被 settings.yaml 或环境变量覆盖
const (
	DefaultDSN = "root:123456@tcp(localhost:3306)/nonce_excavator?parseTime=true&charset=utf8mb4"
)

// 全局连接池
var DBPool *sql.DB

// DriverForDSN 根据 DSN 形态选择驱动：
// postgres:// / postgresql:// 前缀走 pgx，其余按 MySQL DSN 处理
func DriverForDSN(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "pgx"
	}
	return "mysql"
}

// InitDB 初始化数据库连接池并 ping 验证。dsn 为空时取配置值
func InitDB(dsn string) (*sql.DB, error) {
	if dsn == "" {
		dsn = GetDatabaseDSN()
	}

	driver := DriverForDSN(dsn)

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("InitDB: %w", err)
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 验证连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("InitDB ping failed: %w", err)
	}

	DBPool = db
	return db, nil
}
