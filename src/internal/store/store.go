package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Store 基于 database/sql 的持久层，同时服务调度目标列表、
// 签名样本、漏洞发现和手动扫描记录。
// 占位符风格随驱动变化：MySQL 用 ?，pgx 用 $n
type Store struct {
	db     *sql.DB
	driver string
}

// NewStore 创建存储层。driver 取 "mysql" 或 "pgx"
func NewStore(db *sql.DB, driver string) *Store {
	return &Store{db: db, driver: driver}
}

// rebind 把 ? 占位符转换为当前驱动的风格
func (s *Store) rebind(query string) string {
	if s.driver != "pgx" {
		return query
	}

	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// EnsureSchema 建表（幂等）
func (s *Store) EnsureSchema(ctx context.Context) error {
	var stmts []string
	if s.driver == "pgx" {
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS schedule_targets (
				address VARCHAR(128) PRIMARY KEY,
				active BOOLEAN NOT NULL DEFAULT TRUE,
				created TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS signatures (
				id BIGSERIAL PRIMARY KEY,
				address VARCHAR(128) NOT NULL,
				txid VARCHAR(128) NOT NULL,
				sig TEXT NOT NULL,
				captured TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS findings (
				id BIGSERIAL PRIMARY KEY,
				address VARCHAR(128) NOT NULL,
				kind VARCHAR(64) NOT NULL,
				severity INT NOT NULL,
				detail TEXT NOT NULL,
				reasoning TEXT NOT NULL,
				confidence INT NOT NULL,
				created TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS scans (
				id VARCHAR(64) PRIMARY KEY,
				target VARCHAR(128) NOT NULL,
				status VARCHAR(32) NOT NULL,
				error TEXT,
				created TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		}
	} else {
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS schedule_targets (
				address VARCHAR(128) PRIMARY KEY,
				active TINYINT(1) NOT NULL DEFAULT 1,
				created TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS signatures (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				address VARCHAR(128) NOT NULL,
				txid VARCHAR(128) NOT NULL,
				sig TEXT NOT NULL,
				captured TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS findings (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				address VARCHAR(128) NOT NULL,
				kind VARCHAR(64) NOT NULL,
				severity INT NOT NULL,
				detail TEXT NOT NULL,
				reasoning TEXT NOT NULL,
				confidence INT NOT NULL,
				created TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS scans (
				id VARCHAR(64) PRIMARY KEY,
				target VARCHAR(128) NOT NULL,
				status VARCHAR(32) NOT NULL,
				error TEXT,
				created TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		}
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("EnsureSchema: %w", err)
		}
	}
	return nil
}

// ListActiveTargets 返回所有活跃的调度目标地址
func (s *Store) ListActiveTargets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind("SELECT address FROM schedule_targets WHERE active = ?"), true)
	if err != nil {
		return nil, fmt.Errorf("ListActiveTargets: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, rows.Err()
}

// AddTarget 登记一个调度目标（已存在则置为活跃）
func (s *Store) AddTarget(ctx context.Context, address string) error {
	var query string
	if s.driver == "pgx" {
		query = s.rebind(`INSERT INTO schedule_targets (address, active) VALUES (?, TRUE)
			ON CONFLICT (address) DO UPDATE SET active = TRUE`)
	} else {
		query = `INSERT INTO schedule_targets (address, active) VALUES (?, 1)
			ON DUPLICATE KEY UPDATE active = 1`
	}

	if _, err := s.db.ExecContext(ctx, query, address); err != nil {
		return fmt.Errorf("AddTarget: %w", err)
	}
	return nil
}

// SetTargetActive 切换目标的调度开关
func (s *Store) SetTargetActive(ctx context.Context, address string, active bool) error {
	_, err := s.db.ExecContext(ctx,
		s.rebind("UPDATE schedule_targets SET active = ? WHERE address = ?"), active, address)
	if err != nil {
		return fmt.Errorf("SetTargetActive: %w", err)
	}
	return nil
}

// Persist 记录一条漏洞发现及其决策依据
func (s *Store) Persist(ctx context.Context, address, kind string, severity int, detail, reasoning string, confidence int) error {
	_, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO findings (address, kind, severity, detail, reasoning, confidence)
			VALUES (?, ?, ?, ?, ?, ?)`),
		address, kind, severity, detail, reasoning, confidence)
	if err != nil {
		return fmt.Errorf("Persist finding: %w", err)
	}
	return nil
}

// FindingRecord findings 表的一行
type FindingRecord struct {
	Address    string
	Kind       string
	Severity   int
	Detail     string
	Reasoning  string
	Confidence int
	Created    time.Time
}

// ListFindings 查询某地址的历史发现，limit<=0 不限制
func (s *Store) ListFindings(ctx context.Context, address string, limit int) ([]FindingRecord, error) {
	query := "SELECT address, kind, severity, detail, reasoning, confidence, created FROM findings WHERE address = ? ORDER BY created DESC"
	if limit > 0 {
		query = fmt.Sprintf("%s LIMIT %d", query, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), address)
	if err != nil {
		return nil, fmt.Errorf("ListFindings: %w", err)
	}
	defer rows.Close()

	var out []FindingRecord
	for rows.Next() {
		var r FindingRecord
		if err := rows.Scan(&r.Address, &r.Kind, &r.Severity, &r.Detail, &r.Reasoning, &r.Confidence, &r.Created); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SignatureRow signatures 表的一行，sig 为十六进制编码的原始签名
type SignatureRow struct {
	TxID     string
	SigHex   string
	Captured time.Time
}

// InsertSignature 写入一条签名样本
func (s *Store) InsertSignature(ctx context.Context, address, txid, sigHex string) error {
	_, err := s.db.ExecContext(ctx,
		s.rebind("INSERT INTO signatures (address, txid, sig) VALUES (?, ?, ?)"),
		address, txid, sigHex)
	if err != nil {
		return fmt.Errorf("InsertSignature: %w", err)
	}
	return nil
}

// ListSignatures 读取某地址的全部签名样本
func (s *Store) ListSignatures(ctx context.Context, address string) ([]SignatureRow, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind("SELECT txid, sig, captured FROM signatures WHERE address = ? ORDER BY captured"), address)
	if err != nil {
		return nil, fmt.Errorf("ListSignatures: %w", err)
	}
	defer rows.Close()

	var out []SignatureRow
	for rows.Next() {
		var r SignatureRow
		if err := rows.Scan(&r.TxID, &r.SigHex, &r.Captured); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ScanRecord scans 表的一行
type ScanRecord struct {
	ID      string
	Target  string
	Status  string
	Error   sql.NullString
	Created time.Time
	Updated time.Time
}

// CreateScan 登记一条手动扫描记录，初始状态由调用方给出
func (s *Store) CreateScan(ctx context.Context, id, target, status string) error {
	_, err := s.db.ExecContext(ctx,
		s.rebind("INSERT INTO scans (id, target, status) VALUES (?, ?, ?)"),
		id, target, status)
	if err != nil {
		return fmt.Errorf("CreateScan: %w", err)
	}
	return nil
}

// UpdateScanStatus 推进扫描状态，errMsg 仅在 failed 时有意义
func (s *Store) UpdateScanStatus(ctx context.Context, id, status, errMsg string) error {
	var errVal interface{}
	if errMsg != "" {
		errVal = errMsg
	}

	_, err := s.db.ExecContext(ctx,
		s.rebind("UPDATE scans SET status = ?, error = ?, updated = CURRENT_TIMESTAMP WHERE id = ?"),
		status, errVal, id)
	if err != nil {
		return fmt.Errorf("UpdateScanStatus: %w", err)
	}
	return nil
}

// GetScan 查询扫描记录
func (s *Store) GetScan(ctx context.Context, id string) (*ScanRecord, error) {
	var r ScanRecord
	err := s.db.QueryRowContext(ctx,
		s.rebind("SELECT id, target, status, error, created, updated FROM scans WHERE id = ?"), id).
		Scan(&r.ID, &r.Target, &r.Status, &r.Error, &r.Created, &r.Updated)
	if err != nil {
		return nil, fmt.Errorf("GetScan: %w", err)
	}
	return &r, nil
}
