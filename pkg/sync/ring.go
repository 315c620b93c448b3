package sync

import (
	"encoding/binary"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/spaolacci/murmur3"
)

// ring is a consistent hash ring mapping keys onto a fixed set of stripe
// indexes
type ring struct {
	hashRing *treemap.Map

	// minStripe caches the value of the min entry in hashRing, which wraps
	// around for hashes past the last entry. treemap.Map.Min() is O(log n).
	minStripe int
}

// newRing returns a consistent hash ring over stripes [0, stripes), with
// replicationFactor virtual entries per stripe
func newRing(stripes, replicationFactor uint) *ring {
	hashRing := treemap.NewWith(utils.Int64Comparator)

	indexBytes := make([]byte, 4)
	seedBytes := make([]byte, 8)
	for stripe := 0; stripe < int(stripes); stripe++ {
		binary.LittleEndian.PutUint64(seedBytes, murmur3.Sum64(binary.LittleEndian.AppendUint32(nil, uint32(stripe))))

		for i := 0; i < int(replicationFactor); i++ {
			binary.LittleEndian.PutUint32(indexBytes, uint32(i))

			hasher := murmur3.New128()
			hasher.Write(seedBytes)
			hasher.Write(indexBytes)
			hash, _ := hasher.Sum128()

			hashRing.Put(int64(hash), stripe)
		}
	}

	r := &ring{
		hashRing: hashRing,
	}
	if _, minStripe := hashRing.Min(); minStripe != nil {
		r.minStripe = minStripe.(int)
	}
	return r
}

// shard consistently hashes the key and returns its stripe index
func (r *ring) shard(key []byte) int {
	hasher := murmur3.New128()
	hasher.Write(key)
	raw, _ := hasher.Sum128()

	_, stripe := r.hashRing.Ceiling(int64(raw))
	if stripe != nil {
		return stripe.(int)
	}
	return r.minStripe
}
