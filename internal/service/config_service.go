package service

import (
	"context"
	"fmt"

	"imsheet-go/internal/config"
	"imsheet-go/pkg/log"
	"imsheet-go/pkg/storage"
)

// ConfigService 管理存储凭证配置:读取、校验、持久化，并在配置
// 变更后重建存储客户端换入 Env。
type ConfigService interface {
	// Get 返回脱敏后的当前配置。
	Get() config.CosConfig
	// Set 校验并持久化配置，成功后重建存储客户端。
	Set(ctx context.Context, c config.CosConfig) error
	// Validate 用给定配置探测云端目录是否存在，不落盘、不换客户端。
	Validate(ctx context.Context, c config.CosConfig) (bool, error)
}

type configService struct {
	env *Env
}

func NewConfigService(env *Env) ConfigService {
	return &configService{env: env}
}

func (s *configService) Get() config.CosConfig {
	return config.GetCos().Masked()
}

func (s *configService) Set(ctx context.Context, c config.CosConfig) error {
	if !c.Ready() {
		return fmt.Errorf("配置不完整: secret_id/secret_key/bucket/region 均不能为空")
	}
	client, err := storage.New(c)
	if err != nil {
		return fmt.Errorf("构建存储客户端失败: %w", err)
	}
	if err := config.SetCos(c); err != nil {
		return fmt.Errorf("保存配置失败: %w", err)
	}
	s.env.SetStore(client)
	log.Infow("存储配置已更新", "bucket", c.Bucket, "region", c.Region, "dir", c.Dir)
	return nil
}

func (s *configService) Validate(ctx context.Context, c config.CosConfig) (bool, error) {
	if !c.Ready() {
		return false, fmt.Errorf("配置不完整: secret_id/secret_key/bucket/region 均不能为空")
	}
	client, err := storage.New(c)
	if err != nil {
		return false, fmt.Errorf("构建存储客户端失败: %w", err)
	}
	meta, err := client.Head(ctx, CatalogObject)
	if err != nil {
		return false, fmt.Errorf("探测云端目录失败: %w", err)
	}
	return meta.Exists, nil
}
