package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"imsheet-go/pkg/storage"
)

// fakeStore 是 storage.Client 的内存实现，
// 每次写入分配一个递增的指纹，模拟存储端的 ETag 行为。
type fakeStore struct {
	mu      sync.Mutex
	dir     string
	objects map[string][]byte
	etags   map[string]string
	seq     int

	failPut    bool
	failDelete map[string]bool
	putCalls   int
}

var _ storage.Client = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		dir:        storage.DefaultDir,
		objects:    make(map[string][]byte),
		etags:      make(map[string]string),
		failDelete: make(map[string]bool),
	}
}

func (f *fakeStore) FullKey(key string) string {
	if strings.HasPrefix(key, f.dir) {
		return key
	}
	return f.dir + key
}

func (f *fakeStore) Head(ctx context.Context, key string) (storage.ObjectMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[f.FullKey(key)]
	if !ok {
		return storage.ObjectMeta{Exists: false}, nil
	}
	return storage.ObjectMeta{
		Exists:      true,
		Fingerprint: f.etags[f.FullKey(key)],
		Size:        int64(len(data)),
	}, nil
}

func (f *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[f.FullKey(key)]
	if !ok {
		return nil, fmt.Errorf("对象不存在: %s", key)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (f *fakeStore) Put(ctx context.Context, data []byte, key string, opts storage.PutOptions) (storage.PutResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putCalls++
	if f.failPut {
		return storage.PutResult{}, fmt.Errorf("put 失败")
	}
	fullKey := f.FullKey(key)
	f.objects[fullKey] = append([]byte(nil), data...)
	f.seq++
	etag := fmt.Sprintf("etag-%d", f.seq)
	f.etags[fullKey] = etag
	return storage.PutResult{
		Fingerprint: etag,
		Location:    f.objectURLLocked(fullKey),
		Key:         fullKey,
		Size:        int64(len(data)),
	}, nil
}

func (f *fakeStore) DeleteMany(ctx context.Context, keys []string) (storage.DeleteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := storage.DeleteResult{FailedKeys: make([]string, 0)}
	for _, key := range keys {
		fullKey := f.FullKey(key)
		if f.failDelete[fullKey] {
			result.FailedKeys = append(result.FailedKeys, fullKey)
			continue
		}
		delete(f.objects, fullKey)
		delete(f.etags, fullKey)
		result.Deleted++
	}
	return result, nil
}

func (f *fakeStore) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]storage.ObjectInfo, 0)
	for key, data := range f.objects {
		if strings.HasPrefix(key, f.FullKey(prefix)) {
			out = append(out, storage.ObjectInfo{Key: key, Size: int64(len(data)), Fingerprint: f.etags[key]})
		}
	}
	return out, nil
}

func (f *fakeStore) ObjectURL(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objectURLLocked(f.FullKey(key))
}

func (f *fakeStore) objectURLLocked(fullKey string) string {
	return "https://fake.example.com/" + fullKey
}

// has 判断逻辑 key 对应的对象是否存在。
func (f *fakeStore) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[f.FullKey(key)]
	return ok
}

// fingerprint 返回逻辑 key 当前的指纹，不存在时为空串。
func (f *fakeStore) fingerprint(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.etags[f.FullKey(key)]
}

// objectCount 返回当前存储的对象总数。
func (f *fakeStore) objectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}
