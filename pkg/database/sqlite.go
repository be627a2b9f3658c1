// Package database 提供了对本地 images.db（嵌入式 SQLite）的访问能力。
//
// 本地数据库整体作为一个 blob 与云端同步：Export 将整个数据库序列化为
// 字节，Import 用云端拉取的字节整体替换本地数据库。行级 SQL 通过
// Run/All 风格的薄封装执行，表结构的创建与初始化也由本包负责。
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB 封装了本地目录数据库的连接。
// Import/Reset 会整体替换数据库文件，期间通过读写锁屏蔽其它访问。
type DB struct {
	mu   sync.RWMutex
	conn *sql.DB
	path string
}

// Open 打开（必要时创建）指定路径上的数据库，并完成表结构初始化。
// 调用方必须在结束时调用 Close。
func Open(path string) (*DB, error) {
	// 确保父目录存在
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("创建数据库目录失败: %w", err)
	}

	conn, err := open(path)
	if err != nil {
		return nil, err
	}

	db := &DB{conn: conn, path: path}
	if err := db.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// open 建立底层连接并设置 PRAGMA。
func open(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	// WAL 模式 + busy_timeout，避免本进程内读写互斥时直接报错
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("设置 %s 失败: %w", pragma, err)
		}
	}
	return conn, nil
}

// Path 返回数据库文件的路径。
func (db *DB) Path() string {
	return db.path
}

// Close 关闭数据库连接，关闭前执行一次 WAL checkpoint 以落盘全部变更。
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.closeLocked()
}

func (db *DB) closeLocked() error {
	if db.conn == nil {
		return nil
	}
	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: WAL checkpoint 失败: %v\n", err)
	}
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("关闭数据库失败: %w", err)
	}
	db.conn = nil
	return nil
}

// initSchema 创建表结构（幂等），并保证统计行只播种一次。
func (db *DB) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS imsheet(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		image_name TEXT NOT NULL,
		image_location TEXT NOT NULL,
		image_path TEXT NOT NULL UNIQUE,
		image_size INTEGER NOT NULL,
		image_state INTEGER NOT NULL,
		create_time INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS imsheet_statistical(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		size INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		last_hash VARCHAR(255) NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_imsheet_state_time ON imsheet(image_state, create_time);
	`
	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("初始化表结构失败: %w", err)
	}

	var n int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM imsheet_statistical").Scan(&n); err != nil {
		return fmt.Errorf("检查统计行失败: %w", err)
	}
	if n == 0 {
		if _, err := db.conn.ExecContext(ctx,
			"INSERT INTO imsheet_statistical (size, quantity, last_hash) VALUES (0, 0, 'null')"); err != nil {
			return fmt.Errorf("初始化统计行失败: %w", err)
		}
	}
	return nil
}

// Run 执行一条不返回行的 SQL。
func (db *DB) Run(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.conn == nil {
		return nil, fmt.Errorf("数据库未打开")
	}
	return db.conn.ExecContext(ctx, query, args...)
}

// All 执行查询并返回全部行，行的消费由调用方负责。
func (db *DB) All(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.conn == nil {
		return nil, fmt.Errorf("数据库未打开")
	}
	return db.conn.QueryContext(ctx, query, args...)
}

// Get 执行查询并返回最多一行。
func (db *DB) Get(ctx context.Context, query string, args ...interface{}) *sql.Row {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.conn == nil {
		return nil
	}
	return db.conn.QueryRowContext(ctx, query, args...)
}

// Vacuum 回收已删除行占用的空间。
func (db *DB) Vacuum(ctx context.Context) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.conn == nil {
		return fmt.Errorf("数据库未打开")
	}
	if _, err := db.conn.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("VACUUM 失败: %w", err)
	}
	return nil
}

// Export 将整个数据库序列化为字节（先 checkpoint 再读文件）。
func (db *DB) Export(ctx context.Context) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.conn == nil {
		return nil, fmt.Errorf("数据库未打开")
	}
	if _, err := db.conn.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return nil, fmt.Errorf("WAL checkpoint 失败: %w", err)
	}
	data, err := os.ReadFile(db.path)
	if err != nil {
		return nil, fmt.Errorf("读取数据库文件失败: %w", err)
	}
	return data, nil
}

// Import 用给定字节整体替换本地数据库。
// 先写入同目录下的临时文件再原子重命名，任何一步失败都会把旧库
// 挪回原位并重新打开；临时文件在任何路径下都会被清理。
func (db *DB) Import(data []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(db.path), "images-*.db.tmp")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("关闭临时文件失败: %w", err)
	}

	if err := db.closeLocked(); err != nil {
		return err
	}
	// 旧库的 WAL/SHM 附属文件一并清理
	_ = os.Remove(db.path + "-wal")
	_ = os.Remove(db.path + "-shm")

	// 旧库先挪到备份位，后续任何失败都挪回原位恢复可用
	backup := db.path + ".bak"
	if err := os.Rename(db.path, backup); err != nil {
		if !os.IsNotExist(err) {
			db.reopenLocked()
			return fmt.Errorf("备份数据库文件失败: %w", err)
		}
		backup = ""
	}
	restore := func() {
		if backup == "" {
			return
		}
		if err := os.Rename(backup, db.path); err != nil {
			return
		}
		db.reopenLocked()
	}

	if err := os.Rename(tmpPath, db.path); err != nil {
		restore()
		return fmt.Errorf("替换数据库文件失败: %w", err)
	}

	conn, err := open(db.path)
	if err != nil {
		_ = os.Remove(db.path)
		restore()
		return err
	}
	db.conn = conn
	if err := db.initSchema(context.Background()); err != nil {
		_ = conn.Close()
		db.conn = nil
		_ = os.Remove(db.path)
		restore()
		return err
	}
	if backup != "" {
		_ = os.Remove(backup)
	}
	return nil
}

// reopenLocked 重新打开当前路径上的数据库，打不开时连接保持为空。
func (db *DB) reopenLocked() {
	if conn, err := open(db.path); err == nil {
		db.conn = conn
	}
}

// Reset 删除两张表并重建、重新播种统计行，得到一个全新的空目录。
// 仅在云端目录尚不存在、需要首次创建时使用。
func (db *DB) Reset(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.conn == nil {
		return fmt.Errorf("数据库未打开")
	}
	for _, stmt := range []string{
		"DROP TABLE IF EXISTS imsheet",
		"DROP TABLE IF EXISTS imsheet_statistical",
	} {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("重建目录失败: %w", err)
		}
	}
	return db.initSchema(ctx)
}
