package merkle

import (
	"encoding/hex"

	"github.com/dep2p/go-exitmarker/pkg/lib/canonical"
)

// hashPair 计算父节点 SHA-256(left || right)
func hashPair(left, right []byte) []byte {
	buf := make([]byte, 0, len(left)+len(right))
	buf = append(buf, left...)
	buf = append(buf, right...)
	return canonical.Hash(buf)
}

// buildLevels 自底向上构建各层，levels[0] 为叶子，最后一层为根
//
// 奇数层复制最后一个节点参与计算，复制的节点不写回该层。
func buildLevels(leaves [][]byte) [][][]byte {
	levels := [][][]byte{leaves}
	level := leaves
	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, hashPair(left, right))
		}
		levels = append(levels, next)
		level = next
	}
	return levels
}

// decodeLeaves 解析十六进制叶子哈希
func decodeLeaves(hashes []string) ([][]byte, error) {
	leaves := make([][]byte, len(hashes))
	for i, h := range hashes {
		b, err := canonical.DecodeHash(h)
		if err != nil {
			return nil, err
		}
		leaves[i] = b
	}
	return leaves, nil
}

func rootOf(levels [][][]byte) []byte {
	top := levels[len(levels)-1]
	return top[0]
}

func toHex(b []byte) string {
	return hex.EncodeToString(b)
}
