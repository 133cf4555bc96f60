package keystate

import "github.com/dep2p/go-exitmarker/pkg/lib/did"

// Status 密钥状态
type Status string

const (
	// StatusUnborn 尚无创世事件
	StatusUnborn Status = "Unborn"
	// StatusEstablished 已创世
	StatusEstablished Status = "Established"
	// StatusRotated 至少轮换过一次
	StatusRotated Status = "Rotated"
	// StatusCompromised 当前密钥代已声明泄露（终态）
	StatusCompromised Status = "Compromised"
)

// validNext 每个状态允许的下一状态
var validNext = map[Status][]Status{
	StatusUnborn:      {StatusEstablished},
	StatusEstablished: {StatusRotated, StatusCompromised},
	StatusRotated:     {StatusRotated, StatusCompromised},
	StatusCompromised: nil,
}

// ValidNext 返回允许的下一状态
func (s Status) ValidNext() []Status {
	return append([]Status(nil), validNext[s]...)
}

func (s Status) allows(next Status) bool {
	for _, n := range validNext[s] {
		if n == next {
			return true
		}
	}
	return false
}

// State 回放得到的密钥状态
type State struct {
	DID             string   `json:"did"`
	CurrentKeys     []string `json:"currentKeys"`
	NextKeyDigests  []string `json:"nextKeyDigests"`
	Sequence        uint64   `json:"sequence"`
	Status          Status   `json:"status"`
	NonTransferable bool     `json:"nonTransferable,omitempty"`
	Successor       string   `json:"successor,omitempty"`
	LastEventDigest string   `json:"lastEventDigest,omitempty"`

	// RotatedKeys 已被轮换掉的历史密钥，按时间顺序
	RotatedKeys []string `json:"rotatedKeys,omitempty"`
	// CompromisedAt 泄露声明的序号
	CompromisedAt *uint64 `json:"compromisedAt,omitempty"`
}

// UnbornState 返回空状态
func UnbornState() State {
	return State{Status: StatusUnborn}
}

// Clone 返回深拷贝
func (s State) Clone() State {
	c := s
	c.CurrentKeys = cloneStrings(s.CurrentKeys)
	c.NextKeyDigests = cloneStrings(s.NextKeyDigests)
	c.RotatedKeys = cloneStrings(s.RotatedKeys)
	if s.CompromisedAt != nil {
		v := *s.CompromisedAt
		c.CompromisedAt = &v
	}
	return c
}

// IsCurrent 检查 keyDID 是否为当前授权密钥
func (s State) IsCurrent(keyDID string) bool {
	return contains(s.CurrentKeys, keyDID)
}

// ============================================================================
//                              KeyStatus
// ============================================================================

// KeyStatus 某把密钥在指定序号时的状态
type KeyStatus string

const (
	// KeyCurrent 当时为当前密钥
	KeyCurrent KeyStatus = "current"
	// KeyRotated 已被轮换掉
	KeyRotated KeyStatus = "rotated"
	// KeyCompromised 所属密钥代已声明泄露
	KeyCompromised KeyStatus = "compromised"
	// KeyUnknown 从未出现在日志中
	KeyUnknown KeyStatus = "unknown"
)

// KeyStatus 返回 keyDID 在该状态下的地位
func (s State) KeyStatus(keyDID string) KeyStatus {
	return statusOf(s, did.StripFragment(keyDID))
}

// statusOf 根据状态判断密钥的地位
func statusOf(s State, keyDID string) KeyStatus {
	switch {
	case s.IsCurrent(keyDID) && s.Status == StatusCompromised:
		return KeyCompromised
	case s.IsCurrent(keyDID):
		return KeyCurrent
	case contains(s.RotatedKeys, keyDID):
		return KeyRotated
	default:
		return KeyUnknown
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
