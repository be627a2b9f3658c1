package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"imsheet-go/internal/model"
	"imsheet-go/pkg/database"
)

// StatsRepository 接口定义了统计行（imsheet_statistical, id=1）的访问操作。
// size/quantity 只做增量更新，正常运行中绝不整表重算。
type StatsRepository interface {
	Get(ctx context.Context) (*model.CatalogStats, error)
	ApplyDelta(ctx context.Context, sizeDelta, countDelta int64) error
	GetHash(ctx context.Context) (string, error)
	UpdateHash(ctx context.Context, hash string) error
}

// statsRepository 是 StatsRepository 基于嵌入式 SQLite 的实现。
type statsRepository struct {
	db *database.DB
}

// NewStatsRepository 创建一个新的 StatsRepository 实例。
func NewStatsRepository(db *database.DB) StatsRepository {
	return &statsRepository{db: db}
}

// Get 返回统计行。
func (r *statsRepository) Get(ctx context.Context) (*model.CatalogStats, error) {
	row := r.db.Get(ctx, "SELECT id, size, quantity, last_hash FROM imsheet_statistical WHERE id = 1")
	if row == nil {
		return nil, fmt.Errorf("数据库未打开")
	}
	var stats model.CatalogStats
	if err := row.Scan(&stats.ID, &stats.Size, &stats.Quantity, &stats.LastHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("查询统计行失败: %w", err)
	}
	return &stats, nil
}

// ApplyDelta 对 size/quantity 做一次增量更新（删除时传负数）。
func (r *statsRepository) ApplyDelta(ctx context.Context, sizeDelta, countDelta int64) error {
	if _, err := r.db.Run(ctx,
		"UPDATE imsheet_statistical SET size = size + ?, quantity = quantity + ? WHERE id = 1",
		sizeDelta, countDelta); err != nil {
		return fmt.Errorf("更新统计信息失败: %w", err)
	}
	return nil
}

// GetHash 返回本地记录的目录指纹。
func (r *statsRepository) GetHash(ctx context.Context) (string, error) {
	row := r.db.Get(ctx, "SELECT last_hash FROM imsheet_statistical WHERE id = 1")
	if row == nil {
		return "", fmt.Errorf("数据库未打开")
	}
	var hash string
	if err := row.Scan(&hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrRecordNotFound
		}
		return "", fmt.Errorf("查询目录指纹失败: %w", err)
	}
	return hash, nil
}

// UpdateHash 持久化存储端返回的目录指纹。
func (r *statsRepository) UpdateHash(ctx context.Context, hash string) error {
	if _, err := r.db.Run(ctx,
		"UPDATE imsheet_statistical SET last_hash = ? WHERE id = 1", hash); err != nil {
		return fmt.Errorf("更新目录指纹失败: %w", err)
	}
	return nil
}
