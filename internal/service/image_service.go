package service

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"imsheet-go/internal/config"
	"imsheet-go/internal/model"
	"imsheet-go/internal/repository"
	"imsheet-go/pkg/database"
	"imsheet-go/pkg/log"
	"imsheet-go/pkg/storage"
)

var (
	// ErrInvalidState 图片状态只允许 0(回收站)或 1(正常)。
	ErrInvalidState = errors.New("非法的图片状态")
	// ErrNotTrashed 单张删除只允许作用于回收站中的图片。
	ErrNotTrashed = errors.New("图片不在回收站中")
)

// UploadResult 上传成功后返回给调用方的结果。
// Key 是存储端最终落盘的对象 key,Fingerprint 是该对象的指纹。
type UploadResult struct {
	Location    string             `json:"location"`
	Key         string             `json:"key"`
	Size        int64              `json:"size"`
	Fingerprint string             `json:"fingerprint"`
	Record      *model.ImageRecord `json:"record"`
}

// ImageService 是目录变更的编排器。所有写操作都提交到同一个串行
// 执行器，序列内部遵循统一策略:变更前检测分叉并拉取云端目录，
// 变更落库后整体推送回云端。
type ImageService interface {
	Upload(ctx context.Context, fileName string, data []byte) (*UploadResult, error)
	ChangeState(ctx context.Context, id int64, state int) error
	DeleteImage(ctx context.Context, id int64) error
	PurgeTrash(ctx context.Context) (int64, error)
	List(ctx context.Context, page, pageSize, state int, between *model.TimeRange) ([]model.ImageRecord, error)
	Count(ctx context.Context, state int, between *model.TimeRange) (int64, error)

	// CheckCatalog 云端有目录则拉取，没有则重建并推送，返回当前统计。
	CheckCatalog(ctx context.Context) (*model.CatalogStats, error)
	// CreateCatalog 无条件重建本地目录并推送，会丢弃云端旧目录。
	CreateCatalog(ctx context.Context) (*model.CatalogStats, error)
	// PullCatalog 无条件拉取云端目录覆盖本地。
	PullCatalog(ctx context.Context) (*model.CatalogStats, error)

	Close()
}

type imageService struct {
	env    *Env
	sync   SyncService
	images repository.ImageRepository
	stats  repository.StatsRepository
	db     *database.DB
	exec   *Executor
	hub    *ProgressHub
}

func NewImageService(
	env *Env,
	syncSvc SyncService,
	images repository.ImageRepository,
	stats repository.StatsRepository,
	db *database.DB,
	hub *ProgressHub,
) ImageService {
	return &imageService{
		env:    env,
		sync:   syncSvc,
		images: images,
		stats:  stats,
		db:     db,
		exec:   NewExecutor(),
		hub:    hub,
	}
}

// pullIfDiverged 是每个变更序列的第一步:云端指纹与本地不一致时
// 先拉取云端目录，保证变更总是基于最新快照。
func (s *imageService) pullIfDiverged(ctx context.Context) error {
	diverged, err := s.sync.Diverged(ctx)
	if err != nil {
		return err
	}
	if !diverged {
		return nil
	}
	log.Infof("[Sync] 检测到目录分叉，先拉取云端目录")
	return s.sync.Pull(ctx)
}

func (s *imageService) Upload(ctx context.Context, fileName string, data []byte) (*UploadResult, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("上传内容为空")
	}
	cfg := config.GetCos()
	name := fileName
	if cfg.Rename {
		name = renameFile(fileName, time.Now())
	}

	var result *UploadResult
	err := s.exec.Submit(ctx, func(ctx context.Context) error {
		store, err := s.env.Store()
		if err != nil {
			return err
		}
		s.publish(name, model.ProgressPreparing, 0, 0, int64(len(data)), "")
		if err := s.pullIfDiverged(ctx); err != nil {
			return err
		}

		s.publish(name, model.ProgressUploading, 10, 0, int64(len(data)), "")
		opts := storage.PutOptions{ContentType: contentTypeOf(name)}
		if cfg.WebP.Enabled {
			webp := cfg.WebP
			opts.WebP = &webp
		}
		res, err := store.Put(ctx, data, name, opts)
		if err != nil {
			return fmt.Errorf("上传图片失败: %w", err)
		}

		rec := &model.ImageRecord{
			ImageName:     name,
			ImageLocation: res.Location,
			ImagePath:     res.Key,
			ImageSize:     res.Size,
			ImageState:    model.StateActive,
			CreateTime:    time.Now().UnixMilli(),
		}
		id, err := s.images.Insert(ctx, rec)
		if err != nil {
			// 落库失败时回收已上传的对象，避免产生孤儿文件
			if _, derr := store.DeleteMany(ctx, []string{res.Key}); derr != nil {
				log.Errorf("[Upload] 回收对象失败: %v, key: %s", derr, res.Key)
			}
			return fmt.Errorf("写入目录失败: %w", err)
		}
		rec.ID = id

		if err := s.stats.ApplyDelta(ctx, rec.ImageSize, 1); err != nil {
			return err
		}
		if err := s.sync.Push(ctx); err != nil {
			return err
		}
		result = &UploadResult{
			Location:    res.Location,
			Key:         res.Key,
			Size:        rec.ImageSize,
			Fingerprint: res.Fingerprint,
			Record:      rec,
		}
		s.publish(name, model.ProgressCompleted, 100, int64(len(data)), int64(len(data)), "")
		log.Infow("图片上传完成", "name", name, "key", res.Key, "size", rec.ImageSize)
		return nil
	})
	if err != nil {
		s.publish(name, model.ProgressError, 0, 0, int64(len(data)), err.Error())
		return nil, err
	}
	return result, nil
}

func (s *imageService) ChangeState(ctx context.Context, id int64, state int) error {
	if state != model.StateActive && state != model.StateTrashed {
		return ErrInvalidState
	}
	return s.exec.Submit(ctx, func(ctx context.Context) error {
		if err := s.pullIfDiverged(ctx); err != nil {
			return err
		}
		if err := s.images.UpdateState(ctx, id, state, time.Now().UnixMilli()); err != nil {
			return err
		}
		return s.sync.Push(ctx)
	})
}

func (s *imageService) DeleteImage(ctx context.Context, id int64) error {
	return s.exec.Submit(ctx, func(ctx context.Context) error {
		store, err := s.env.Store()
		if err != nil {
			return err
		}
		if err := s.pullIfDiverged(ctx); err != nil {
			return err
		}
		rec, err := s.images.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if rec.ImageState != model.StateTrashed {
			return ErrNotTrashed
		}
		res, err := store.DeleteMany(ctx, []string{rec.ImagePath})
		if err != nil {
			return fmt.Errorf("删除云端对象失败: %w", err)
		}
		if len(res.FailedKeys) > 0 {
			// 与清空回收站同一策略:对象删除失败不中断，目录照常移除该记录
			log.Warnf("[DeleteImage] 对象删除失败: %s", strings.Join(res.FailedKeys, ", "))
		}
		if err := s.images.DeleteByID(ctx, id); err != nil {
			return err
		}
		if err := s.stats.ApplyDelta(ctx, -rec.ImageSize, -1); err != nil {
			return err
		}
		return s.sync.Push(ctx)
	})
}

func (s *imageService) PurgeTrash(ctx context.Context) (int64, error) {
	var purged int64
	err := s.exec.Submit(ctx, func(ctx context.Context) error {
		store, err := s.env.Store()
		if err != nil {
			return err
		}
		// 清空回收站前无条件对齐云端目录，避免漏删他端新入回收站的对象
		exists, err := s.sync.Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			if err := s.sync.Pull(ctx); err != nil {
				return err
			}
		}

		trashed, err := s.images.FindTrashed(ctx)
		if err != nil {
			return err
		}
		if len(trashed) == 0 {
			return s.sync.Push(ctx)
		}

		keys := make([]string, 0, len(trashed))
		var totalSize int64
		for _, rec := range trashed {
			keys = append(keys, rec.ImagePath)
			totalSize += rec.ImageSize
		}
		res, err := store.DeleteMany(ctx, keys)
		if err != nil {
			return fmt.Errorf("批量删除云端对象失败: %w", err)
		}
		if len(res.FailedKeys) > 0 {
			// 部分失败不中断，目录继续清空，失败对象留待下次处理
			log.Warnf("[PurgeTrash] %d 个对象删除失败: %s",
				len(res.FailedKeys), strings.Join(res.FailedKeys, ", "))
		}

		if err := s.images.DeleteTrashed(ctx); err != nil {
			return err
		}
		if err := s.db.Vacuum(ctx); err != nil {
			return err
		}
		if err := s.stats.ApplyDelta(ctx, -totalSize, -int64(len(trashed))); err != nil {
			return err
		}
		purged = int64(len(trashed))
		log.Infow("回收站已清空", "purged", purged, "freed", totalSize)
		return s.sync.Push(ctx)
	})
	return purged, err
}

func (s *imageService) List(ctx context.Context, page, pageSize, state int, between *model.TimeRange) ([]model.ImageRecord, error) {
	return s.images.List(ctx, page, pageSize, state, between)
}

func (s *imageService) Count(ctx context.Context, state int, between *model.TimeRange) (int64, error) {
	return s.images.Count(ctx, state, between)
}

func (s *imageService) CheckCatalog(ctx context.Context) (*model.CatalogStats, error) {
	var stats *model.CatalogStats
	err := s.exec.Submit(ctx, func(ctx context.Context) error {
		exists, err := s.sync.Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			if err := s.sync.Pull(ctx); err != nil {
				return err
			}
		} else {
			log.Infof("[Catalog] 云端目录不存在，初始化新目录")
			if err := s.sync.Create(ctx); err != nil {
				return err
			}
		}
		stats, err = s.stats.Get(ctx)
		return err
	})
	return stats, err
}

func (s *imageService) CreateCatalog(ctx context.Context) (*model.CatalogStats, error) {
	var stats *model.CatalogStats
	err := s.exec.Submit(ctx, func(ctx context.Context) error {
		if err := s.sync.Create(ctx); err != nil {
			return err
		}
		var err error
		stats, err = s.stats.Get(ctx)
		return err
	})
	return stats, err
}

func (s *imageService) PullCatalog(ctx context.Context) (*model.CatalogStats, error) {
	var stats *model.CatalogStats
	err := s.exec.Submit(ctx, func(ctx context.Context) error {
		if err := s.sync.Pull(ctx); err != nil {
			return err
		}
		var err error
		stats, err = s.stats.Get(ctx)
		return err
	})
	return stats, err
}

func (s *imageService) Close() {
	s.exec.Close()
}

func (s *imageService) publish(key, stage string, percent float64, loaded, total int64, msg string) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(model.UploadProgress{
		Key:     key,
		Stage:   stage,
		Percent: percent,
		Loaded:  loaded,
		Total:   total,
		Message: msg,
	})
}

func contentTypeOf(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
