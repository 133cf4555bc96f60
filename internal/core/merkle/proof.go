package merkle

import (
	"bytes"
	"fmt"

	"github.com/dep2p/go-exitmarker/pkg/lib/canonical"
	"github.com/fxamacker/cbor/v2"
)

// Side 兄弟节点相对当前节点的位置
type Side uint8

const (
	// SideLeft 兄弟在左，parent = H(sibling || node)
	SideLeft Side = 0
	// SideRight 兄弟在右，parent = H(node || sibling)
	SideRight Side = 1
)

func (s Side) String() string {
	if s == SideLeft {
		return "left"
	}
	return "right"
}

// Step 证明路径上的一层
type Step struct {
	Hash string `json:"hash"`
	Side Side   `json:"side"`
}

// Proof Merkle 成员证明
type Proof struct {
	Index    int    `json:"index"`
	LeafHash string `json:"leafHash"`
	Siblings []Step `json:"siblings"`
	Root     string `json:"root"`
}

// ComputeMerkleProof 返回第 index 个叶子的成员证明，路径从叶子到根
func ComputeMerkleProof(batch *BatchExit, index int) (*Proof, error) {
	if batch == nil {
		return nil, ErrEmptyBatch
	}
	if err := batch.ensureLevels(); err != nil {
		return nil, err
	}
	leaves := batch.levels[0]
	if index < 0 || index >= len(leaves) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, len(leaves))
	}

	p := &Proof{
		Index:    index,
		LeafHash: toHex(leaves[index]),
		Root:     toHex(rootOf(batch.levels)),
		Siblings: make([]Step, 0, len(batch.levels)-1),
	}

	pos := index
	for _, level := range batch.levels[:len(batch.levels)-1] {
		var step Step
		if pos%2 == 0 {
			sib := pos + 1
			if sib >= len(level) {
				// 奇数层末尾节点与自身配对
				sib = pos
			}
			step = Step{Hash: toHex(level[sib]), Side: SideRight}
		} else {
			step = Step{Hash: toHex(level[pos-1]), Side: SideLeft}
		}
		p.Siblings = append(p.Siblings, step)
		pos /= 2
	}
	return p, nil
}

// VerifyBatchMembership 按固定顺序折叠 leafHash 与兄弟节点并与 root 比较
//
// 任何格式错误都返回 false。leafHash 应由 LeafHash 从凭证推导，
// 内部节点同样能通过本函数，见包文档。
func VerifyBatchMembership(p *Proof, leafHash, root string) bool {
	if p == nil {
		return false
	}
	node, err := canonical.DecodeHash(leafHash)
	if err != nil {
		return false
	}
	want, err := canonical.DecodeHash(root)
	if err != nil {
		return false
	}

	for _, step := range p.Siblings {
		sib, err := canonical.DecodeHash(step.Hash)
		if err != nil {
			return false
		}
		switch step.Side {
		case SideLeft:
			node = hashPair(sib, node)
		case SideRight:
			node = hashPair(node, sib)
		default:
			return false
		}
	}
	return bytes.Equal(node, want)
}

// ============================================================================
//                              CBOR 编码
// ============================================================================

// wireProof 紧凑编码：哈希为原始字节，兄弟方向压缩为位图
type wireProof struct {
	Index    uint64   `cbor:"1,keyasint"`
	Leaf     []byte   `cbor:"2,keyasint"`
	Siblings [][]byte `cbor:"3,keyasint"`
	Sides    []byte   `cbor:"4,keyasint"`
	Root     []byte   `cbor:"5,keyasint"`
}

var (
	proofEncMode cbor.EncMode
	proofDecMode cbor.DecMode
)

func init() {
	var err error
	if proofEncMode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(err)
	}
	if proofDecMode, err = (cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}).DecMode(); err != nil {
		panic(err)
	}
}

// EncodeProof 将证明编码为确定性 CBOR
func EncodeProof(p *Proof) ([]byte, error) {
	if p == nil || p.Index < 0 {
		return nil, ErrInvalidProof
	}
	w := wireProof{
		Index:    uint64(p.Index),
		Siblings: make([][]byte, len(p.Siblings)),
		Sides:    make([]byte, (len(p.Siblings)+7)/8),
	}
	var err error
	if w.Leaf, err = canonical.DecodeHash(p.LeafHash); err != nil {
		return nil, fmt.Errorf("%w: leaf: %v", ErrInvalidProof, err)
	}
	if w.Root, err = canonical.DecodeHash(p.Root); err != nil {
		return nil, fmt.Errorf("%w: root: %v", ErrInvalidProof, err)
	}
	for i, step := range p.Siblings {
		if w.Siblings[i], err = canonical.DecodeHash(step.Hash); err != nil {
			return nil, fmt.Errorf("%w: sibling %d: %v", ErrInvalidProof, i, err)
		}
		if step.Side == SideRight {
			w.Sides[i/8] |= 1 << (i % 8)
		}
	}
	return proofEncMode.Marshal(w)
}

// DecodeProof 解码 EncodeProof 的输出
func DecodeProof(data []byte) (*Proof, error) {
	var w wireProof
	if err := proofDecMode.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	if len(w.Leaf) != canonical.HashSize || len(w.Root) != canonical.HashSize {
		return nil, fmt.Errorf("%w: bad hash length", ErrInvalidProof)
	}
	if len(w.Sides) != (len(w.Siblings)+7)/8 {
		return nil, fmt.Errorf("%w: side bitmap length", ErrInvalidProof)
	}
	if w.Index > uint64(maxInt) {
		return nil, fmt.Errorf("%w: index overflow", ErrInvalidProof)
	}

	p := &Proof{
		Index:    int(w.Index),
		LeafHash: toHex(w.Leaf),
		Root:     toHex(w.Root),
		Siblings: make([]Step, len(w.Siblings)),
	}
	for i, sib := range w.Siblings {
		if len(sib) != canonical.HashSize {
			return nil, fmt.Errorf("%w: sibling %d length", ErrInvalidProof, i)
		}
		side := SideLeft
		if w.Sides[i/8]&(1<<(i%8)) != 0 {
			side = SideRight
		}
		p.Siblings[i] = Step{Hash: toHex(sib), Side: side}
	}
	return p, nil
}

const maxInt = int(^uint(0) >> 1)
