package merkle

import (
	"encoding/json"

	"github.com/dep2p/go-exitmarker/internal/core/storage"
	"github.com/dep2p/go-exitmarker/internal/core/storage/kv"
)

// Repository 批次存储，值为 BatchExit 的 JSON
type Repository struct {
	kv *kv.Store
}

// NewRepository 创建批次存储
func NewRepository(store *kv.Store) *Repository {
	return &Repository{kv: store}
}

// Save 保存批次，同一 ID 只能写入一次
func (r *Repository) Save(b *BatchExit) error {
	if b == nil || b.ID == "" {
		return storage.Wrap("save", "", ErrEmptyBatch)
	}
	data, err := json.Marshal(b)
	if err != nil {
		return storage.Wrap("encode", b.ID, err)
	}
	return storage.Wrap("save", b.ID, r.kv.PutIfAbsent([]byte(b.ID), data))
}

// Get 加载批次，树在首次计算证明时重建
func (r *Repository) Get(id string) (*BatchExit, error) {
	b := new(BatchExit)
	if err := r.kv.GetJSON([]byte(id), b); err != nil {
		return nil, storage.Wrap("get", id, err)
	}
	return b, nil
}

// List 按 ID 顺序返回全部批次 ID
func (r *Repository) List() ([]string, error) {
	keys, err := r.kv.Keys(nil)
	if err != nil {
		return nil, storage.Wrap("list", "", err)
	}
	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = string(k)
	}
	return ids, nil
}
