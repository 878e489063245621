package pcache

import (
	"encoding/binary"
	"hash/maphash"

	"github.com/dgryski/go-tinylfu"
)

var admissionSeed = maphash.MakeSeed()

func pageKeyHash(k pageKey) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(k.fi))
	binary.LittleEndian.PutUint64(buf[8:16], k.idx)

	return maphash.Bytes(admissionSeed, buf[:])
}

// admission wraps a small TinyLFU sketch used purely as a scan-resistance
// hint for which LRU-tail candidate a shard evicts next. It is never the
// source of truth for page residency -- the shard's own hash table and LRU
// list are -- it only arbitrates among pages already at the eviction
// boundary, so a single sequential scan through cold pages cannot push a
// genuinely hot page out from under concurrent readers.
type admission struct {
	sketch *tinylfu.T[pageKey, struct{}]
}

func newAdmission(capacityHint int) *admission {
	if capacityHint < 1 {
		capacityHint = 1
	}

	return &admission{sketch: tinylfu.New[pageKey, struct{}](capacityHint, capacityHint*10, pageKeyHash)}
}

// touch records an access to key.
func (a *admission) touch(key pageKey) {
	a.sketch.Add(key, struct{}{})
}

// hot reports whether the sketch still considers key part of its working
// set, i.e. whether it survived its own frequency-based admission.
func (a *admission) hot(key pageKey) bool {
	_, ok := a.sketch.Get(key)

	return ok
}
