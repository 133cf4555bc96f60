package marker

import (
	"encoding/json"
	"strings"

	"github.com/dep2p/go-exitmarker/internal/core/storage"
	"github.com/dep2p/go-exitmarker/internal/core/storage/kv"
	"github.com/dep2p/go-exitmarker/pkg/types"
)

// Repository 已签名 marker 的持久化
type Repository interface {
	// Save 保存已签名的 marker，同一 ID 只能保存一次
	Save(m *types.ExitMarker) error
	// Get 按 ID 加载
	Get(id string) (*types.ExitMarker, error)
	// ListBySubject 返回主体的全部 marker
	ListBySubject(subject string) ([]*types.ExitMarker, error)
}

// 键布局（"m/" 前缀下）：
//
//	r/<id>              marker JSON
//	s/<subject>/<id>    主体索引
const (
	recordPrefix  = "r/"
	subjectPrefix = "s/"
)

// KVRepository 基于 KV 存储的 Repository
type KVRepository struct {
	kv *kv.Store
}

var _ Repository = (*KVRepository)(nil)

// NewKVRepository 创建 Repository
func NewKVRepository(store *kv.Store) *KVRepository {
	return &KVRepository{kv: store}
}

// Save 实现 Repository
func (r *KVRepository) Save(m *types.ExitMarker) error {
	if m == nil {
		return storage.Wrap("save", "", ErrNilMarker)
	}
	if m.Proof == nil {
		return storage.Wrap("save", m.ID, ErrUnsigned)
	}
	data, err := json.Marshal(m)
	if err != nil {
		return storage.Wrap("encode", m.ID, err)
	}

	// 记录与主体索引同一事务提交
	b := r.kv.NewBatch()
	b.PutIfAbsent([]byte(recordPrefix+m.ID), data)
	b.Put(subjectKey(m.Subject, m.ID), []byte(m.ID))
	return storage.Wrap("save", m.ID, b.Write())
}

// Get 实现 Repository
func (r *KVRepository) Get(id string) (*types.ExitMarker, error) {
	m := new(types.ExitMarker)
	if err := r.kv.GetJSON([]byte(recordPrefix+id), m); err != nil {
		return nil, storage.Wrap("get", id, err)
	}
	return m, nil
}

// ListBySubject 实现 Repository，按 ID 排序
func (r *KVRepository) ListBySubject(subject string) ([]*types.ExitMarker, error) {
	prefix := subjectPrefix + subject + "/"
	keys, err := r.kv.Keys([]byte(prefix))
	if err != nil {
		return nil, storage.Wrap("list", subject, err)
	}
	out := make([]*types.ExitMarker, 0, len(keys))
	for _, k := range keys {
		m, err := r.Get(strings.TrimPrefix(string(k), prefix))
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func subjectKey(subject, id string) []byte {
	return []byte(subjectPrefix + subject + "/" + id)
}
