package service

import (
	"sync"

	"imsheet-go/internal/model"
)

// ProgressHub 向所有订阅者广播上传进度事件，供 WebSocket 推送使用。
// 订阅者消费过慢时事件会被丢弃，进度通知不保证送达。
type ProgressHub struct {
	mu   sync.RWMutex
	subs map[chan model.UploadProgress]struct{}
}

func NewProgressHub() *ProgressHub {
	return &ProgressHub{subs: make(map[chan model.UploadProgress]struct{})}
}

// Subscribe 注册一个订阅者，返回事件通道与取消函数。
func (h *ProgressHub) Subscribe() (<-chan model.UploadProgress, func()) {
	ch := make(chan model.UploadProgress, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish 广播一条进度事件，满的订阅通道直接跳过。
func (h *ProgressHub) Publish(p model.UploadProgress) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- p:
		default:
		}
	}
}
