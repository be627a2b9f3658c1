// Package storage 提供了与对象存储服务（腾讯云 COS 及兼容 S3 协议的服务）
// 交互的功能。所有逻辑 key 都会被配置的目录前缀（默认 ImSheet/）命名空间化。
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"imsheet-go/internal/config"
)

// ErrNotInitialized 表示在对象存储配置就绪之前发起了请求。
var ErrNotInitialized = errors.New("对象存储未初始化")

// DefaultDir 是未配置目录前缀时使用的默认命名空间。
const DefaultDir = "ImSheet/"

// ObjectMeta 是 Head 的结果。对象不存在不是错误，而是 Exists=false。
type ObjectMeta struct {
	Exists      bool   `json:"exists"`
	Fingerprint string `json:"fingerprint"`
	Size        int64  `json:"size"`
}

// PutResult 是 Put 的结果。Key 为存储端最终落盘的 key，
// 服务端处理（如转码）可能使其与请求的 key 不同，后续记账必须以它为准。
type PutResult struct {
	Fingerprint string `json:"fingerprint"`
	Location    string `json:"location"`
	Key         string `json:"key"`
	Size        int64  `json:"size"`
}

// PutOptions 控制单次上传的内容类型与服务端图片处理。
type PutOptions struct {
	ContentType string
	WebP        *config.WebPConfig
}

// DeleteResult 是 DeleteMany 的结果，部分失败通过 FailedKeys 显式暴露。
type DeleteResult struct {
	Deleted    int      `json:"deleted"`
	FailedKeys []string `json:"failedKeys"`
}

// ObjectInfo 描述 List 返回的单个对象。
type ObjectInfo struct {
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	Fingerprint string `json:"fingerprint"`
}

// Client 定义了上层（同步器与编排器）消费的对象存储能力。
type Client interface {
	Head(ctx context.Context, key string) (ObjectMeta, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, data []byte, key string, opts PutOptions) (PutResult, error)
	DeleteMany(ctx context.Context, keys []string) (DeleteResult, error)
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	ObjectURL(key string) string
	FullKey(key string) string
}

// CosClient 是 Client 的 MinIO SDK 实现。
type CosClient struct {
	client *minio.Client
	cfg    config.CosConfig
	dir    string
}

// 编译期约束：CosClient 必须实现 Client。
var _ Client = (*CosClient)(nil)

// New 根据配置构造一个对象存储客户端。
// 同一进程可以并存多个实例（例如用临时配置做凭证校验）。
func New(cfg config.CosConfig) (*CosClient, error) {
	if !cfg.Ready() {
		return nil, ErrNotInitialized
	}

	client, err := minio.New(cfg.ResolveEndpoint(), &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.SecretID, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupDNS,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化对象存储客户端失败: %w", err)
	}

	return &CosClient{
		client: client,
		cfg:    cfg,
		dir:    NormalizeDir(cfg.Dir),
	}, nil
}

// NormalizeDir 将目录前缀规整为 `seg/seg/.../` 形式。
// 兼容混用的 `/` 与 `\` 分隔符，为空时回落到 DefaultDir。幂等。
func NormalizeDir(dir string) string {
	segs := strings.FieldsFunc(dir, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	if len(segs) == 0 {
		return DefaultDir
	}
	return strings.Join(segs, "/") + "/"
}

// FullKey 为逻辑 key 加上目录前缀。已带前缀的 key 原样返回（幂等）。
func (c *CosClient) FullKey(key string) string {
	if strings.HasPrefix(key, c.dir) {
		return key
	}
	return c.dir + key
}

// Head 查询对象元信息。对象不存在返回 Exists=false 而非错误，
// 网络/鉴权失败则作为错误传播。
func (c *CosClient) Head(ctx context.Context, key string) (ObjectMeta, error) {
	info, err := c.client.StatObject(ctx, c.cfg.Bucket, c.FullKey(key), minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == 404 {
			return ObjectMeta{Exists: false}, nil
		}
		return ObjectMeta{}, fmt.Errorf("head %s 失败: %w", key, err)
	}
	return ObjectMeta{
		Exists:      true,
		Fingerprint: trimETag(info.ETag),
		Size:        info.Size,
	}, nil
}

// Get 读取整个对象。对象不存在同样作为错误传播（调用方应先 Head）。
func (c *CosClient) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := c.client.GetObject(ctx, c.cfg.Bucket, c.FullKey(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s 失败: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("读取对象 %s 失败: %w", key, err)
	}
	return data, nil
}

// Put 上传字节到指定 key，返回存储端的指纹与最终 key。
func (c *CosClient) Put(ctx context.Context, data []byte, key string, opts PutOptions) (PutResult, error) {
	fullKey := c.FullKey(key)

	putOpts := minio.PutObjectOptions{ContentType: opts.ContentType}
	if opts.WebP != nil && opts.WebP.Enabled {
		// 数据万象处理指令：fileid 与上传 key 一致，存储端以 WebP 覆盖原图
		putOpts.UserMetadata = map[string]string{
			"Pic-Operations": buildPicOperations(fullKey, opts.WebP.Quality),
		}
	}

	info, err := c.client.PutObject(ctx, c.cfg.Bucket, fullKey,
		bytes.NewReader(data), int64(len(data)), putOpts)
	if err != nil {
		return PutResult{}, fmt.Errorf("put %s 失败: %w", key, err)
	}

	// 以写入结果中的 key 为准，请求的 key 只是建议值
	resolvedKey := info.Key
	if resolvedKey == "" {
		resolvedKey = fullKey
	}
	size := info.Size
	if size == 0 {
		size = int64(len(data))
	}
	return PutResult{
		Fingerprint: trimETag(info.ETag),
		Location:    c.ObjectURL(resolvedKey),
		Key:         resolvedKey,
		Size:        size,
	}, nil
}

// DeleteMany 批量删除对象。部分失败不作为错误返回，
// 而是通过 DeleteResult.FailedKeys 交由调用方决定如何处理。
func (c *CosClient) DeleteMany(ctx context.Context, keys []string) (DeleteResult, error) {
	objectsCh := make(chan minio.ObjectInfo)
	go func() {
		defer close(objectsCh)
		for _, key := range keys {
			objectsCh <- minio.ObjectInfo{Key: c.FullKey(key)}
		}
	}()

	failed := make([]string, 0)
	for rmErr := range c.client.RemoveObjects(ctx, c.cfg.Bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if rmErr.Err != nil {
			failed = append(failed, rmErr.ObjectName)
		}
	}
	return DeleteResult{
		Deleted:    len(keys) - len(failed),
		FailedKeys: failed,
	}, nil
}

// List 列出目录前缀下指定 prefix 的全部对象。
func (c *CosClient) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	objects := make([]ObjectInfo, 0)
	for info := range c.client.ListObjects(ctx, c.cfg.Bucket, minio.ListObjectsOptions{
		Prefix:    c.FullKey(prefix),
		Recursive: true,
	}) {
		if info.Err != nil {
			return nil, fmt.Errorf("列出对象失败: %w", info.Err)
		}
		objects = append(objects, ObjectInfo{
			Key:         info.Key,
			Size:        info.Size,
			Fingerprint: trimETag(info.ETag),
		})
	}
	return objects, nil
}

// ObjectURL 构建对象的访问 URL。
// 配置了自定义域名时改写为该域名，否则使用桶的地域端点。
func (c *CosClient) ObjectURL(key string) string {
	fullKey := c.FullKey(key)
	if c.cfg.Domain != "" {
		domain := c.cfg.Domain
		if !strings.HasPrefix(domain, "http://") && !strings.HasPrefix(domain, "https://") {
			domain = "https://" + domain
		}
		return strings.TrimRight(domain, "/") + "/" + fullKey
	}
	scheme := "https"
	if !c.cfg.UseSSL {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s.%s/%s", scheme, c.cfg.Bucket, c.cfg.ResolveEndpoint(), fullKey)
}

// buildPicOperations 生成存储端 WebP 转码的处理指令。
func buildPicOperations(fileID string, quality int) string {
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	ops := map[string]interface{}{
		"is_pic_info": 0,
		"rules": []map[string]string{{
			"fileid": fileID,
			"rule":   fmt.Sprintf("imageMogr2/format/webp/quality/%d!", quality),
		}},
	}
	raw, _ := json.Marshal(ops)
	return string(raw)
}

// trimETag 去掉存储端指纹两侧的引号。指纹是不透明令牌，本地绝不重新计算。
func trimETag(etag string) string {
	return strings.Trim(etag, `"`)
}
