package service

import (
	"sync"

	"imsheet-go/pkg/storage"
)

// Env 持有可在运行期替换的存储客户端。凭证未配置时客户端为 nil,
// 配置保存成功后由 ConfigService 重建并换入新的客户端。
type Env struct {
	mu    sync.RWMutex
	store storage.Client
}

func NewEnv(store storage.Client) *Env {
	return &Env{store: store}
}

// Store 返回当前存储客户端，未配置凭证时返回 ErrNotInitialized。
func (e *Env) Store() (storage.Client, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.store == nil {
		return nil, storage.ErrNotInitialized
	}
	return e.store, nil
}

// SetStore 原子替换存储客户端。
func (e *Env) SetStore(c storage.Client) {
	e.mu.Lock()
	e.store = c
	e.mu.Unlock()
}
