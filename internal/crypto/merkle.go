package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// MerkleRoot computes a binary Merkle root over a slice of event hashes in
// the "sha256:<hex>" or bare hex form. Odd levels duplicate the last node.
// Returns "" for an empty or undecodable input.
func MerkleRoot(hashes []string) string {
	if len(hashes) == 0 {
		return ""
	}
	level := make([][]byte, 0, len(hashes))
	for _, h := range hashes {
		b, err := hex.DecodeString(strings.TrimPrefix(h, "sha256:"))
		if err != nil {
			return ""
		}
		level = append(level, b)
	}
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
		level = next
	}
	return "sha256:" + hex.EncodeToString(level[0])
}

func hashPair(left, right []byte) []byte {
	h := sha256.New()
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}
