package keystate

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dep2p/go-exitmarker/internal/core/storage"
	"github.com/dep2p/go-exitmarker/internal/core/storage/kv"
	"github.com/fxamacker/cbor/v2"
)

// Store 密钥事件的持久化接口
//
// Append 是预写日志：同一 (identifier, sequence) 只能写入一次，
// 已存在时返回 storage.ErrExists。Load 按序号返回全部事件。
type Store interface {
	Append(ev *Event) error
	Load(identifier string) ([]*Event, error)
}

// ============================================================================
//                              KVStore
// ============================================================================

// KVStore 基于 kv.Store 的事件存储
//
// 键布局：<identifier>/<sequence 大端 8 字节>，前缀扫描即按序号有序。
// 值为确定性 CBOR 编码的 Event。
type KVStore struct {
	kv  *kv.Store
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewKVStore 创建事件存储
func NewKVStore(store *kv.Store) (*KVStore, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("cbor encoder: %w", err)
	}
	dec, err := cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("cbor decoder: %w", err)
	}
	return &KVStore{kv: store, enc: enc, dec: dec}, nil
}

func eventKey(identifier string, seq uint64) []byte {
	key := make([]byte, 0, len(identifier)+1+8)
	key = append(key, identifier...)
	key = append(key, '/')
	return binary.BigEndian.AppendUint64(key, seq)
}

// Append 写入事件，已存在的序号不会被覆盖
func (s *KVStore) Append(ev *Event) error {
	name := fmt.Sprintf("%s/%d", ev.Identifier, ev.Sequence)
	data, err := s.enc.Marshal(ev)
	if err != nil {
		return storage.Wrap("encode", name, err)
	}
	if err := s.kv.PutIfAbsent(eventKey(ev.Identifier, ev.Sequence), data); err != nil {
		return storage.Wrap("append", name, err)
	}
	return nil
}

// Load 按序号加载标识符的全部事件
func (s *KVStore) Load(identifier string) ([]*Event, error) {
	var (
		events []*Event
		decErr error
	)
	err := s.kv.PrefixScan([]byte(identifier+"/"), func(key, value []byte) bool {
		ev := new(Event)
		if err := s.dec.Unmarshal(value, ev); err != nil {
			decErr = storage.Wrap("decode", string(key), errors.Join(storage.ErrCorrupted, err))
			return false
		}
		events = append(events, ev)
		return true
	})
	if err != nil {
		return nil, storage.Wrap("load", identifier, err)
	}
	if decErr != nil {
		return nil, decErr
	}
	return events, nil
}

// ============================================================================
//                              MemStore
// ============================================================================

// MemStore 内存事件存储
type MemStore struct {
	mu     sync.RWMutex
	events map[string]map[uint64]*Event
}

// NewMemStore 创建内存事件存储
func NewMemStore() *MemStore {
	return &MemStore{events: make(map[string]map[uint64]*Event)}
}

// Append 写入事件
func (s *MemStore) Append(ev *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, ok := s.events[ev.Identifier]
	if !ok {
		log = make(map[uint64]*Event)
		s.events[ev.Identifier] = log
	}
	if _, exists := log[ev.Sequence]; exists {
		return storage.Wrap("append", fmt.Sprintf("%s/%d", ev.Identifier, ev.Sequence), storage.ErrExists)
	}
	log[ev.Sequence] = ev.Clone()
	return nil
}

// Load 按序号加载事件
func (s *MemStore) Load(identifier string) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.events[identifier]
	events := make([]*Event, 0, len(log))
	for _, ev := range log {
		events = append(events, ev.Clone())
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Sequence < events[j].Sequence })
	return events, nil
}

var (
	_ Store = (*KVStore)(nil)
	_ Store = (*MemStore)(nil)
)
