package dispute

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dep2p/go-exitmarker/internal/core/storage"
	"github.com/dep2p/go-exitmarker/internal/core/storage/kv"
	"github.com/dep2p/go-exitmarker/pkg/types"
)

// 键布局（均位于 "d/" 前缀下）：
//
//	f/<id>              登记时的争议记录（不含裁决）
//	r/<id>              裁决，只能写入一次
//	x/<markerId>/<id>   凭证到争议的索引
const (
	filedPrefix      = "f/"
	resolutionPrefix = "r/"
	indexPrefix      = "x/"
)

// Repository 争议存储
//
// 登记记录与裁决分开存放，两者都只写一次，重复裁决在存储层同样被拒绝。
type Repository struct {
	kv *kv.Store
}

// NewRepository 创建争议存储
func NewRepository(store *kv.Store) *Repository {
	return &Repository{kv: store}
}

// File 保存新登记的争议，已携带裁决时一并保存
//
// 登记记录、凭证索引与裁决在同一事务中提交。
func (r *Repository) File(d *types.Dispute) error {
	if d == nil || d.ID == "" {
		return storage.Wrap("file", "", errors.New("dispute id is required"))
	}

	filed := d.Clone()
	filed.Resolution = nil
	data, err := json.Marshal(filed)
	if err != nil {
		return storage.Wrap("encode", d.ID, err)
	}

	b := r.kv.NewBatch()
	b.PutIfAbsent([]byte(filedPrefix+d.ID), data)
	b.Put(indexKey(d.MarkerID, d.ID), []byte(d.ID))
	if d.Resolved() {
		res, err := json.Marshal(d.Resolution)
		if err != nil {
			return storage.Wrap("encode", d.ID, err)
		}
		b.PutIfAbsent([]byte(resolutionPrefix+d.ID), res)
	}
	return storage.Wrap("file", d.ID, b.Write())
}

// Resolve 保存裁决，争议必须已登记
//
// 已有裁决时返回 ErrAlreadyResolved。
func (r *Repository) Resolve(d *types.Dispute) error {
	if !d.Resolved() {
		return storage.Wrap("resolve", "", errors.New("dispute is not resolved"))
	}
	ok, err := r.kv.Has([]byte(filedPrefix + d.ID))
	if err != nil {
		return storage.Wrap("resolve", d.ID, err)
	}
	if !ok {
		return storage.Wrap("resolve", d.ID, storage.ErrNotFound)
	}

	data, err := json.Marshal(d.Resolution)
	if err != nil {
		return storage.Wrap("encode", d.ID, err)
	}
	err = r.kv.PutIfAbsent([]byte(resolutionPrefix+d.ID), data)
	if storage.IsExists(err) {
		return fmt.Errorf("%s: %w", d.ID, ErrAlreadyResolved)
	}
	return storage.Wrap("resolve", d.ID, err)
}

// Get 加载争议及其裁决
func (r *Repository) Get(id string) (*types.Dispute, error) {
	d := new(types.Dispute)
	if err := r.kv.GetJSON([]byte(filedPrefix+id), d); err != nil {
		return nil, storage.Wrap("get", id, err)
	}

	res := new(types.Resolution)
	err := r.kv.GetJSON([]byte(resolutionPrefix+id), res)
	switch {
	case err == nil:
		d.Resolution = res
	case !storage.IsNotFound(err):
		return nil, storage.Wrap("get", id, err)
	}
	return d, nil
}

// ListByMarker 返回指定凭证的全部争议，按争议 ID 排序
func (r *Repository) ListByMarker(markerID string) ([]types.Dispute, error) {
	prefix := indexPrefix + markerID + "/"
	keys, err := r.kv.Keys([]byte(prefix))
	if err != nil {
		return nil, storage.Wrap("list", markerID, err)
	}

	out := make([]types.Dispute, 0, len(keys))
	for _, k := range keys {
		d, err := r.Get(strings.TrimPrefix(string(k), prefix))
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, nil
}

func indexKey(markerID, id string) []byte {
	return []byte(indexPrefix + markerID + "/" + id)
}
