// Package repository 定义了与本地目录数据库进行数据交换的接口和实现。
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"imsheet-go/internal/model"
	"imsheet-go/pkg/database"
)

// ErrRecordNotFound 表示按条件没有查到任何行。
var ErrRecordNotFound = errors.New("record not found")

// ImageRepository 接口定义了图片行级别的持久化操作。
// 所有修改操作只允许编排器在持有变更队列时调用。
type ImageRepository interface {
	Insert(ctx context.Context, rec *model.ImageRecord) (int64, error)
	FindByID(ctx context.Context, id int64) (*model.ImageRecord, error)
	List(ctx context.Context, page, pageSize, state int, between *model.TimeRange) ([]model.ImageRecord, error)
	Count(ctx context.Context, state int, between *model.TimeRange) (int64, error)
	UpdateState(ctx context.Context, id int64, state int, now int64) error
	FindTrashed(ctx context.Context) ([]model.ImageRecord, error)
	DeleteTrashed(ctx context.Context) error
	DeleteByID(ctx context.Context, id int64) error
}

// imageRepository 是 ImageRepository 基于嵌入式 SQLite 的实现。
type imageRepository struct {
	db *database.DB
}

// NewImageRepository 创建一个新的 ImageRepository 实例。
func NewImageRepository(db *database.DB) ImageRepository {
	return &imageRepository{db: db}
}

const imageColumns = "id, image_name, image_location, image_path, image_size, image_state, create_time"

// Insert 写入一条图片记录并返回自增 id。
// image_path 的唯一约束由表结构保证，冲突时直接返回 SQL 错误。
func (r *imageRepository) Insert(ctx context.Context, rec *model.ImageRecord) (int64, error) {
	res, err := r.db.Run(ctx, `
		INSERT INTO imsheet (image_name, image_location, image_path, image_size, image_state, create_time)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ImageName, rec.ImageLocation, rec.ImagePath, rec.ImageSize, rec.ImageState, rec.CreateTime)
	if err != nil {
		return 0, fmt.Errorf("插入图片记录失败: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("获取插入 id 失败: %w", err)
	}
	rec.ID = id
	return id, nil
}

// FindByID 按 id 查询单条记录。
func (r *imageRepository) FindByID(ctx context.Context, id int64) (*model.ImageRecord, error) {
	row := r.db.Get(ctx, "SELECT "+imageColumns+" FROM imsheet WHERE id = ?", id)
	if row == nil {
		return nil, fmt.Errorf("数据库未打开")
	}
	rec, err := scanImage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("查询图片记录失败: %w", err)
	}
	return rec, nil
}

// List 按状态分页返回记录，create_time 降序，可选时间区间过滤。
func (r *imageRepository) List(ctx context.Context, page, pageSize, state int, between *model.TimeRange) ([]model.ImageRecord, error) {
	if page < 1 {
		page = 1
	}
	query := "SELECT " + imageColumns + " FROM imsheet WHERE image_state = ?"
	args := []interface{}{state}
	if between != nil {
		query += " AND create_time BETWEEN ? AND ?"
		args = append(args, between.From, between.To)
	}
	query += " ORDER BY create_time DESC LIMIT ? OFFSET ?"
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.All(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询图片列表失败: %w", err)
	}
	defer rows.Close()

	records := make([]model.ImageRecord, 0)
	for rows.Next() {
		var rec model.ImageRecord
		if err := rows.Scan(&rec.ID, &rec.ImageName, &rec.ImageLocation, &rec.ImagePath,
			&rec.ImageSize, &rec.ImageState, &rec.CreateTime); err != nil {
			return nil, fmt.Errorf("扫描图片记录失败: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Count 统计指定状态（可选时间区间）的记录数。
func (r *imageRepository) Count(ctx context.Context, state int, between *model.TimeRange) (int64, error) {
	query := "SELECT COUNT(*) FROM imsheet WHERE image_state = ?"
	args := []interface{}{state}
	if between != nil {
		query += " AND create_time BETWEEN ? AND ?"
		args = append(args, between.From, between.To)
	}

	var count int64
	row := r.db.Get(ctx, query, args...)
	if row == nil {
		return 0, fmt.Errorf("数据库未打开")
	}
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("统计图片数量失败: %w", err)
	}
	return count, nil
}

// UpdateState 修改单条记录的状态，并把 create_time 改写为本次变更时间。
func (r *imageRepository) UpdateState(ctx context.Context, id int64, state int, now int64) error {
	res, err := r.db.Run(ctx, "UPDATE imsheet SET image_state = ?, create_time = ? WHERE id = ?",
		state, now, id)
	if err != nil {
		return fmt.Errorf("更新图片状态失败: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// FindTrashed 返回回收站中的全部记录。
func (r *imageRepository) FindTrashed(ctx context.Context) ([]model.ImageRecord, error) {
	rows, err := r.db.All(ctx, "SELECT "+imageColumns+" FROM imsheet WHERE image_state = ?", model.StateTrashed)
	if err != nil {
		return nil, fmt.Errorf("查询回收站记录失败: %w", err)
	}
	defer rows.Close()

	records := make([]model.ImageRecord, 0)
	for rows.Next() {
		var rec model.ImageRecord
		if err := rows.Scan(&rec.ID, &rec.ImageName, &rec.ImageLocation, &rec.ImagePath,
			&rec.ImageSize, &rec.ImageState, &rec.CreateTime); err != nil {
			return nil, fmt.Errorf("扫描回收站记录失败: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteTrashed 删除回收站中的全部记录。
func (r *imageRepository) DeleteTrashed(ctx context.Context) error {
	if _, err := r.db.Run(ctx, "DELETE FROM imsheet WHERE image_state = ?", model.StateTrashed); err != nil {
		return fmt.Errorf("删除回收站记录失败: %w", err)
	}
	return nil
}

// DeleteByID 删除单条记录。
func (r *imageRepository) DeleteByID(ctx context.Context, id int64) error {
	if _, err := r.db.Run(ctx, "DELETE FROM imsheet WHERE id = ?", id); err != nil {
		return fmt.Errorf("删除图片记录失败: %w", err)
	}
	return nil
}

// scanImage 从单行结果扫描一条图片记录。
func scanImage(row *sql.Row) (*model.ImageRecord, error) {
	var rec model.ImageRecord
	if err := row.Scan(&rec.ID, &rec.ImageName, &rec.ImageLocation, &rec.ImagePath,
		&rec.ImageSize, &rec.ImageState, &rec.CreateTime); err != nil {
		return nil, err
	}
	return &rec, nil
}
