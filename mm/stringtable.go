package mm

import (
	"github.com/dgryski/go-farm"
	"github.com/grailbio/base/errors"
)

// InvalidStringId is returned by Lookup when a name is not present.
const InvalidStringId = ^uint32(0)

// tableBucket is one slot of the open-addressing hash table. Id == -1 marks
// an empty slot; the zero value of a freshly mmap'd file is therefore never
// mistaken for an occupied bucket with Id 0, because CreateNewStringTable
// explicitly initializes every slot to {0, -1}.
type tableBucket struct {
	Hash uint64
	Id   int64
}

var emptyBucket = tableBucket{Hash: 0, Id: -1}

// StringTable is a fixed-capacity, open-addressing name interning table:
// name -> dense StringId. Capacity is fixed at creation time; callers must
// size for at least 2x the number of names they expect to intern (insertion
// past that point fails with a CapacityExhausted-kind error rather than
// growing, unlike Vector/VectorOfVectors).
//
// Hashing uses farmhash (github.com/dgryski/go-farm), the same hash family
// used elsewhere in this corpus for large derived-structure lookups
// (fusion/kmer_index.go).
type StringTable struct {
	buckets  *Vector[tableBucket]
	names    *VectorOfVectors[byte, uint32]
	capacity int
}

// CreateNewStringTable creates a new, empty table with room for capacity
// buckets.
func CreateNewStringTable(basePath string, capacity int) (*StringTable, error) {
	if capacity <= 0 {
		return nil, errors.E(errors.Invalid, "mm.CreateNewStringTable: capacity must be positive")
	}
	buckets, err := CreateNew[tableBucket](basePath+".buckets", capacity, capacity)
	if err != nil {
		return nil, err
	}
	for i := 0; i < capacity; i++ {
		buckets.Set(i, emptyBucket)
	}
	names, err := CreateNewVOV[byte, uint32](basePath+".names", capacity*8)
	if err != nil {
		buckets.Remove() // nolint: errcheck
		return nil, err
	}
	return &StringTable{buckets: buckets, names: names, capacity: capacity}, nil
}

// AccessExistingStringTable opens a previously created table.
func AccessExistingStringTable(basePath string, writable bool) (*StringTable, error) {
	buckets, err := AccessExisting[tableBucket](basePath+".buckets", writable)
	if err != nil {
		return nil, err
	}
	names, err := AccessExistingVOV[byte, uint32](basePath+".names", writable)
	if err != nil {
		buckets.Close() // nolint: errcheck
		return nil, err
	}
	return &StringTable{buckets: buckets, names: names, capacity: buckets.Len()}, nil
}

func hashName(name string) uint64 {
	return farm.Hash64([]byte(name))
}

func (t *StringTable) nameAt(id uint32) string {
	return string(t.names.Row(int(id)))
}

// probe linear-probes for name, returning the slot holding it (found=true)
// or the first empty slot where it would be inserted (found=false). ok is
// false only if the table has no empty slot at all, i.e. capacity exhausted.
func (t *StringTable) probe(name string) (slot int, found, ok bool) {
	h := hashName(name)
	start := int(h % uint64(t.capacity))
	for i := 0; i < t.capacity; i++ {
		pos := (start + i) % t.capacity
		b := t.buckets.At(pos)
		if b.Id < 0 {
			return pos, false, true
		}
		if b.Hash == h && t.nameAt(uint32(b.Id)) == name {
			return pos, true, true
		}
	}
	return 0, false, false
}

// Lookup returns name's StringId, or InvalidStringId if name is not
// interned.
func (t *StringTable) Lookup(name string) uint32 {
	slot, found, ok := t.probe(name)
	if !ok || !found {
		return InvalidStringId
	}
	return uint32(t.buckets.At(slot).Id)
}

// Intern returns name's StringId, interning it if necessary.
func (t *StringTable) Intern(name string) (uint32, error) {
	slot, found, ok := t.probe(name)
	if !ok {
		return 0, errors.E(errors.Precondition, "mm.StringTable: CapacityExhausted")
	}
	if found {
		return uint32(t.buckets.At(slot).Id), nil
	}
	newID := uint32(t.names.NumRows())
	if err := t.names.AppendEmptyRow(); err != nil {
		return 0, err
	}
	for i := 0; i < len(name); i++ {
		if err := t.names.AppendToLastRow(name[i]); err != nil {
			return 0, err
		}
	}
	t.buckets.Set(slot, tableBucket{Hash: hashName(name), Id: int64(newID)})
	return newID, nil
}

// Name returns the interned string for id, or ("", false) if id is out of
// range.
func (t *StringTable) Name(id uint32) (string, bool) {
	if int(id) >= t.names.NumRows() {
		return "", false
	}
	return t.nameAt(id), true
}

// Count returns the number of distinct interned strings.
func (t *StringTable) Count() int { return t.names.NumRows() }

// SyncToDisk flushes both backing structures.
func (t *StringTable) SyncToDisk() error {
	var errp errors.Once
	errp.Set(t.buckets.SyncToDisk())
	errp.Set(t.names.SyncToDisk())
	return errp.Err()
}

// Close unmaps both backing structures.
func (t *StringTable) Close() error {
	var errp errors.Once
	errp.Set(t.buckets.Close())
	errp.Set(t.names.Close())
	return errp.Err()
}

// Remove closes and deletes both backing structures.
func (t *StringTable) Remove() error {
	var errp errors.Once
	errp.Set(t.buckets.Remove())
	errp.Set(t.names.Remove())
	return errp.Err()
}
