package keystore

// List holds the entries of one backing store in line order.
// Released entries stay in place as tombstones so indexes remain stable
// while a caller walks the list.
type List struct {
	entries []*Entry
}

// NewEntry appends an empty entry and returns it.
func (l *List) NewEntry() *Entry {
	e := &Entry{Values: make(Values)}
	l.entries = append(l.entries, e)
	return e
}

// Len returns the number of slots, tombstones included.
func (l *List) Len() int {
	return len(l.entries)
}

// At returns the entry at index i.
func (l *List) At(i int) *Entry {
	return l.entries[i]
}

// Find returns the first live entry at or after start whose fields satisfy
// query, along with its index. It returns nil and -1 when nothing matches.
// Calling Find again with index+1 enumerates every match.
func (l *List) Find(query Values, start int) (*Entry, int) {
	if start < 0 {
		start = 0
	}
	for i := start; i < len(l.entries); i++ {
		e := l.entries[i]
		if e.Live() && e.Values.Matches(query) {
			return e, i
		}
	}
	return nil, -1
}

// FindExact returns the first live entry whose fields equal values exactly.
func (l *List) FindExact(values Values) (*Entry, int) {
	for i := 0; ; i++ {
		e, idx := l.Find(values, i)
		if e == nil {
			return nil, -1
		}
		if e.Values.Equal(values) {
			return e, idx
		}
		i = idx
	}
}

// Release tombstones the entry at index i.
func (l *List) Release(i int) {
	l.entries[i].Clear()
}

// Live returns the live entries in line order.
func (l *List) Live() []*Entry {
	live := make([]*Entry, 0, len(l.entries))
	for _, e := range l.entries {
		if e.Live() {
			live = append(live, e)
		}
	}
	return live
}

// Free wipes every entry and empties the list.
func (l *List) Free() {
	for _, e := range l.entries {
		e.Clear()
	}
	l.entries = nil
}
