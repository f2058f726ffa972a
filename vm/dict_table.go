package vm

// ---------------------------------------------------------------------------
// DictTable: value-keyed Robin Hood hash map
// ---------------------------------------------------------------------------

// DictTable maps immutable values (nil, booleans, numbers, strings) to
// values. It backs the guest Dict type and uses the same Robin Hood
// probing and backward-shift deletion as Table.
//
// Keys hash and compare by their boxed bits. Strings are interned, so two
// equal strings always share a handle and therefore the same bits.
type DictTable struct {
	count   int
	capMask int
	entries []dictEntry
}

type dictEntry struct {
	key   Value
	value Value
	hash  uint32
	psl   int
	used  bool
}

// hashBits mixes the 64 bits of a key down to 32 (splitmix64 finalizer).
func hashBits(bits uint64) uint32 {
	bits ^= bits >> 30
	bits *= 0xbf58476d1ce4e5b9
	bits ^= bits >> 27
	bits *= 0x94d049bb133111eb
	bits ^= bits >> 31
	return uint32(bits)
}

// Len returns the number of entries.
func (d *DictTable) Len() int {
	return d.count
}

func (d *DictTable) find(key Value) int {
	if d.count == 0 {
		return -1
	}
	bits := key.keyBits()
	hash := hashBits(bits)
	idx := int(hash) & d.capMask
	for psl := 0; ; psl++ {
		e := &d.entries[idx]
		if !e.used || e.psl < psl {
			return -1
		}
		if e.hash == hash && e.key.keyBits() == bits {
			return idx
		}
		idx = (idx + 1) & d.capMask
	}
}

// Get returns the value stored for key.
func (d *DictTable) Get(key Value) (Value, bool) {
	idx := d.find(key)
	if idx < 0 {
		return Nil, false
	}
	return d.entries[idx].value, true
}

// Contains reports whether key is present.
func (d *DictTable) Contains(key Value) bool {
	return d.find(key) >= 0
}

// Set stores value under key and reports whether the key was new.
func (d *DictTable) Set(key Value, value Value) bool {
	if float64(d.count+1) > float64(len(d.entries))*tableMaxLoad {
		d.resize(growMask(d.capMask))
	}

	bits := key.keyBits()
	cur := dictEntry{key: key, value: value, hash: hashBits(bits), used: true}
	idx := int(cur.hash) & d.capMask
	for {
		e := &d.entries[idx]
		if !e.used {
			*e = cur
			d.count++
			return true
		}
		if e.hash == cur.hash && e.key.keyBits() == cur.key.keyBits() {
			e.value = cur.value
			return false
		}
		if e.psl < cur.psl {
			cur, *e = *e, cur
		}
		cur.psl++
		idx = (idx + 1) & d.capMask
	}
}

// Delete removes key and reports whether it was present.
func (d *DictTable) Delete(key Value) bool {
	idx := d.find(key)
	if idx < 0 {
		return false
	}
	for {
		next := (idx + 1) & d.capMask
		n := &d.entries[next]
		if !n.used || n.psl == 0 {
			d.entries[idx] = dictEntry{}
			break
		}
		d.entries[idx] = *n
		d.entries[idx].psl--
		idx = next
	}
	d.count--
	if d.capMask > tableMinMask && float64(d.count) < float64(len(d.entries))*tableMinLoad {
		d.resize(d.capMask >> 1)
	}
	return true
}

func (d *DictTable) resize(mask int) {
	old := d.entries
	d.entries = make([]dictEntry, mask+1)
	d.capMask = mask
	d.count = 0
	for i := range old {
		if old[i].used {
			d.Set(old[i].key, old[i].value)
		}
	}
}

// Each calls fn for every entry until fn returns false.
func (d *DictTable) Each(fn func(key, value Value) bool) {
	for i := range d.entries {
		if e := &d.entries[i]; e.used {
			if !fn(e.key, e.value) {
				return
			}
		}
	}
}

func (d *DictTable) checkInvariant() int {
	for i := range d.entries {
		e := &d.entries[i]
		if !e.used {
			continue
		}
		home := int(e.hash) & d.capMask
		if (i-home)&d.capMask != e.psl {
			return i
		}
	}
	return -1
}
