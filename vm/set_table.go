package vm

// ---------------------------------------------------------------------------
// SetTable: value-keyed hash set
// ---------------------------------------------------------------------------

// SetTable holds immutable values (nil, booleans, numbers, strings). It uses
// plain linear probing with tombstone deletion: a set carries no payload, so
// there is nothing to displace on removal.
//
// A slot whose key is Empty is unused. A tombstone is an unused slot with
// the tombstone flag set; lookups probe past it, inserts may reuse it.
type SetTable struct {
	count   int // live entries
	used    int // live entries + tombstones
	capMask int
	entries []setEntry
}

type setEntry struct {
	key       Value
	tombstone bool
}

// Len returns the number of members.
func (s *SetTable) Len() int {
	return s.count
}

// findSlot returns the slot for key: either the slot holding it or the
// slot an insert should use (the first tombstone seen, else the empty slot
// that ended the probe).
func (s *SetTable) findSlot(key Value) (int, bool) {
	bits := key.keyBits()
	idx := int(hashBits(bits)) & s.capMask
	tomb := -1
	for {
		e := &s.entries[idx]
		if e.key == Empty {
			if !e.tombstone {
				if tomb >= 0 {
					return tomb, false
				}
				return idx, false
			}
			if tomb < 0 {
				tomb = idx
			}
		} else if e.key.keyBits() == bits {
			return idx, true
		}
		idx = (idx + 1) & s.capMask
	}
}

// Contains reports whether key is a member.
func (s *SetTable) Contains(key Value) bool {
	if s.count == 0 {
		return false
	}
	_, ok := s.findSlot(key)
	return ok
}

// Add inserts key and reports whether it was new.
func (s *SetTable) Add(key Value) bool {
	if float64(s.used+1) > float64(len(s.entries))*tableMaxLoad {
		s.resize(growMask(s.capMask))
	}
	idx, ok := s.findSlot(key)
	if ok {
		return false
	}
	e := &s.entries[idx]
	if !e.tombstone {
		s.used++
	}
	*e = setEntry{key: key}
	s.count++
	return true
}

// Delete removes key, leaving a tombstone, and reports whether it was
// present.
func (s *SetTable) Delete(key Value) bool {
	if s.count == 0 {
		return false
	}
	idx, ok := s.findSlot(key)
	if !ok {
		return false
	}
	s.entries[idx] = setEntry{key: Empty, tombstone: true}
	s.count--
	if s.capMask > tableMinMask && float64(s.count) < float64(len(s.entries))*tableMinLoad {
		s.resize(s.capMask >> 1)
	}
	return true
}

// resize rehashes the live members, dropping tombstones.
func (s *SetTable) resize(mask int) {
	old := s.entries
	s.entries = make([]setEntry, mask+1)
	for i := range s.entries {
		s.entries[i].key = Empty
	}
	s.capMask = mask
	s.count = 0
	s.used = 0
	for i := range old {
		if old[i].key != Empty {
			idx, _ := s.findSlot(old[i].key)
			s.entries[idx].key = old[i].key
			s.count++
			s.used++
		}
	}
}

// Each calls fn for every member until fn returns false.
func (s *SetTable) Each(fn func(key Value) bool) {
	for i := range s.entries {
		if k := s.entries[i].key; k != Empty {
			if !fn(k) {
				return
			}
		}
	}
}
