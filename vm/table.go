package vm

// ---------------------------------------------------------------------------
// Table: string-keyed Robin Hood hash map
// ---------------------------------------------------------------------------

// Table maps interned strings to values. Keys are compared by identity,
// which is sound because every string is interned.
//
// Collisions are resolved with Robin Hood linear probing. Every occupied
// slot records its probe sequence length (psl), the distance from the
// key's ideal slot. Deletion shifts the following run back one slot, so
// the table never holds tombstones.
type Table struct {
	count   int
	capMask int // capacity - 1; zero while unallocated
	entries []tableEntry
}

type tableEntry struct {
	key   *ObjString
	value Value
	psl   int
}

const (
	tableMaxLoad = 0.75
	tableMinLoad = 0.25
	tableMinMask = 7
)

// Len returns the number of entries in the table.
func (t *Table) Len() int {
	return t.count
}

func (t *Table) capacity() int {
	return len(t.entries)
}

// Get returns the value stored for key.
func (t *Table) Get(key *ObjString) (Value, bool) {
	if t.count == 0 || key == nil {
		return Nil, false
	}
	idx := t.find(key)
	if idx < 0 {
		return Nil, false
	}
	return t.entries[idx].value, true
}

// Contains reports whether key is present.
func (t *Table) Contains(key *ObjString) bool {
	_, ok := t.Get(key)
	return ok
}

// find returns the slot holding key, or -1. The probe stops early once it
// reaches an entry closer to home than the probe distance, since a Robin
// Hood insert would have displaced that entry.
func (t *Table) find(key *ObjString) int {
	idx := int(key.Hash) & t.capMask
	for psl := 0; ; psl++ {
		e := &t.entries[idx]
		if e.key == nil || e.psl < psl {
			return -1
		}
		if e.key == key {
			return idx
		}
		idx = (idx + 1) & t.capMask
	}
}

// Set stores value under key and reports whether the key was new.
func (t *Table) Set(key *ObjString, value Value) bool {
	if float64(t.count+1) > float64(t.capacity())*tableMaxLoad {
		t.resize(growMask(t.capMask))
	}

	cur := tableEntry{key: key, value: value}
	idx := int(key.Hash) & t.capMask
	for {
		e := &t.entries[idx]
		if e.key == nil {
			*e = cur
			t.count++
			return true
		}
		if e.key == key {
			e.value = value
			return false
		}
		if e.psl < cur.psl {
			// The resident is richer than the entry being placed: take its
			// slot and keep probing with the resident.
			cur, *e = *e, cur
		}
		cur.psl++
		idx = (idx + 1) & t.capMask
	}
}

// Delete removes key and reports whether it was present.
func (t *Table) Delete(key *ObjString) bool {
	if t.count == 0 || key == nil {
		return false
	}
	idx := t.find(key)
	if idx < 0 {
		return false
	}
	t.removeAt(idx)
	if t.capMask > tableMinMask && float64(t.count) < float64(t.capacity())*tableMinLoad {
		t.resize(t.capMask >> 1)
	}
	return true
}

// removeAt performs the backward-shift deletion for slot idx.
func (t *Table) removeAt(idx int) {
	for {
		next := (idx + 1) & t.capMask
		n := &t.entries[next]
		if n.key == nil || n.psl == 0 {
			t.entries[idx] = tableEntry{}
			break
		}
		t.entries[idx] = *n
		t.entries[idx].psl--
		idx = next
	}
	t.count--
}

func (t *Table) resize(mask int) {
	old := t.entries
	t.entries = make([]tableEntry, mask+1)
	t.capMask = mask
	t.count = 0
	for i := range old {
		if old[i].key != nil {
			t.Set(old[i].key, old[i].value)
		}
	}
}

// growMask returns the mask for the next capacity step.
func growMask(mask int) int {
	if mask < tableMinMask {
		return tableMinMask
	}
	return mask<<1 | 1
}

// FindString looks up an interned string by content. It is the only
// lookup that compares characters instead of identity.
func (t *Table) FindString(chars string, hash uint32) *ObjString {
	if t.count == 0 {
		return nil
	}
	idx := int(hash) & t.capMask
	for psl := 0; ; psl++ {
		e := &t.entries[idx]
		if e.key == nil || e.psl < psl {
			return nil
		}
		if e.key.Hash == hash && e.key.Chars == chars {
			return e.key
		}
		idx = (idx + 1) & t.capMask
	}
}

// AddAll copies every entry of from into t, overwriting existing keys.
func (t *Table) AddAll(from *Table) {
	for i := range from.entries {
		if e := &from.entries[i]; e.key != nil {
			t.Set(e.key, e.value)
		}
	}
}

// Each calls fn for every entry until fn returns false.
func (t *Table) Each(fn func(key *ObjString, value Value) bool) {
	for i := range t.entries {
		if e := &t.entries[i]; e.key != nil {
			if !fn(e.key, e.value) {
				return
			}
		}
	}
}

// Keys returns the keys in slot order.
func (t *Table) Keys() []*ObjString {
	keys := make([]*ObjString, 0, t.count)
	t.Each(func(k *ObjString, _ Value) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// removeWhite drops every entry whose key was not marked. Used on the
// intern table, which must not keep strings alive on its own.
func (t *Table) removeWhite() {
	var dead []*ObjString
	for i := range t.entries {
		if e := &t.entries[i]; e.key != nil && !e.key.marked {
			dead = append(dead, e.key)
		}
	}
	for _, k := range dead {
		t.Delete(k)
	}
}

// checkInvariant verifies that every recorded psl equals the true
// displacement of its entry. It returns the first offending slot or -1.
func (t *Table) checkInvariant() int {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key == nil {
			continue
		}
		home := int(e.key.Hash) & t.capMask
		if (i-home)&t.capMask != e.psl {
			return i
		}
	}
	return -1
}
