package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// stateDigest hashes the seed and every resident chunk in coordinate order.
// Two worlds that loaded and edited the same chunks agree on it.
func (w *World) stateDigest() string {
	h := sha256.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(w.noise.Seed()))
	h.Write(buf[:])
	for _, c := range w.chunks.Keys() {
		ch, _ := w.chunks.Get(c)
		for _, v := range [3]int{c.X, c.Y, c.Z} {
			binary.LittleEndian.PutUint64(buf[:], uint64(int64(v)))
			h.Write(buf[:])
		}
		h.Write(ch.Bytes())
	}
	return hex.EncodeToString(h.Sum(nil))
}
