package service

import (
	"context"
	"fmt"

	"imsheet-go/internal/repository"
	"imsheet-go/pkg/database"
	"imsheet-go/pkg/log"
	"imsheet-go/pkg/storage"
)

// CatalogObject 云端目录快照的逻辑键，实际对象键为 <Dir>/images.db。
const CatalogObject = "images.db"

// SyncService 负责本地目录与云端目录快照之间的整文件同步。
// 指纹(去引号的 ETag)保存在 imsheet_statistical.last_hash 中，
// 本地指纹与云端指纹不一致即视为目录分叉，必须先拉取再变更。
type SyncService interface {
	// Exists 检查云端是否存在目录快照。
	Exists(ctx context.Context) (bool, error)
	// Diverged 比较云端指纹与本地指纹，云端不存在时视为未分叉。
	Diverged(ctx context.Context) (bool, error)
	// Pull 下载云端快照覆盖本地目录，并把云端指纹写入本地。
	Pull(ctx context.Context) error
	// Push 上传本地目录覆盖云端快照，并把返回指纹写入本地。
	Push(ctx context.Context) error
	// Create 重建空目录并推送到云端，用于首次初始化。
	Create(ctx context.Context) error
}

type syncService struct {
	env   *Env
	db    *database.DB
	stats repository.StatsRepository
}

func NewSyncService(env *Env, db *database.DB, stats repository.StatsRepository) SyncService {
	return &syncService{env: env, db: db, stats: stats}
}

func (s *syncService) Exists(ctx context.Context) (bool, error) {
	store, err := s.env.Store()
	if err != nil {
		return false, err
	}
	meta, err := store.Head(ctx, CatalogObject)
	if err != nil {
		return false, fmt.Errorf("检查云端目录失败: %w", err)
	}
	return meta.Exists, nil
}

func (s *syncService) Diverged(ctx context.Context) (bool, error) {
	store, err := s.env.Store()
	if err != nil {
		return false, err
	}
	meta, err := store.Head(ctx, CatalogObject)
	if err != nil {
		return false, fmt.Errorf("获取云端目录指纹失败: %w", err)
	}
	if !meta.Exists {
		return false, nil
	}
	local, err := s.stats.GetHash(ctx)
	if err != nil {
		return false, err
	}
	return meta.Fingerprint != local, nil
}

func (s *syncService) Pull(ctx context.Context) error {
	store, err := s.env.Store()
	if err != nil {
		return err
	}
	data, err := store.Get(ctx, CatalogObject)
	if err != nil {
		return fmt.Errorf("下载云端目录失败: %w", err)
	}
	if err := s.db.Import(data); err != nil {
		return fmt.Errorf("导入云端目录失败: %w", err)
	}
	// 指纹以云端当前元数据为准，而非下载时的响应头
	meta, err := store.Head(ctx, CatalogObject)
	if err != nil {
		return fmt.Errorf("获取云端目录指纹失败: %w", err)
	}
	if err := s.stats.UpdateHash(ctx, meta.Fingerprint); err != nil {
		return err
	}
	log.Infof("[Pull] 已拉取云端目录，fingerprint: %s", meta.Fingerprint)
	return nil
}

func (s *syncService) Push(ctx context.Context) error {
	store, err := s.env.Store()
	if err != nil {
		return err
	}
	data, err := s.db.Export(ctx)
	if err != nil {
		return fmt.Errorf("导出本地目录失败: %w", err)
	}
	res, err := store.Put(ctx, data, CatalogObject, storage.PutOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("上传目录到云端失败: %w", err)
	}
	if err := s.stats.UpdateHash(ctx, res.Fingerprint); err != nil {
		return err
	}
	log.Infof("[Push] 已推送本地目录，fingerprint: %s", res.Fingerprint)
	return nil
}

func (s *syncService) Create(ctx context.Context) error {
	if err := s.db.Reset(ctx); err != nil {
		return fmt.Errorf("重建本地目录失败: %w", err)
	}
	if err := s.Push(ctx); err != nil {
		return err
	}
	log.Infow("已初始化云端目录", "object", CatalogObject)
	return nil
}
