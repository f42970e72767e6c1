// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rates

// # Partitioned Cache

// partitionSet holds one content kind's buckets and an id index over them.
type partitionSet struct {
	buckets map[Status][]Entry
	index   map[int64]Status
}

func newPartitionSet() *partitionSet {
	set := &partitionSet{
		buckets: make(map[Status][]Entry, len(Statuses)),
		index:   make(map[int64]Status),
	}

	// Every status gets a bucket up front; lookups never see a missing key.
	for _, status := range Statuses {
		set.buckets[status] = []Entry{}
	}
	return set
}

func (set *partitionSet) position(status Status, id int64) int {
	for i, entry := range set.buckets[status] {
		if entry.ID == id {
			return i
		}
	}
	return -1
}

func (set *partitionSet) detach(id int64) (Status, int, bool) {
	status, found := set.index[id]
	if !found {
		return StatusNone, -1, false
	}

	i := set.position(status, id)
	if i >= 0 {
		bucket := set.buckets[status]
		set.buckets[status] = append(bucket[:i:i], bucket[i+1:]...)
	}
	delete(set.index, id)

	return status, i, true
}

func (set *partitionSet) append(entry Entry) {
	set.buckets[entry.Status] = append(set.buckets[entry.Status], entry)
	set.index[entry.ID] = entry.Status
}

// Store is the partitioned in-memory cache of list entries.
//
// Each content kind owns a partition set mapping every status to an ordered
// slice of entries. Bucket order is insertion order; display order is the
// [View]'s job.
//
// # Invariant
//
// An entry id appears in at most one bucket of its kind. Status changes are
// always remove-then-insert.
//
// # Concurrency
//
// Store is not safe for concurrent use. A [List] owns its Store and only
// touches it from its task loop.
type Store struct {
	sets map[Kind]*partitionSet
}

// NewStore constructs an empty [Store] with every bucket initialised.
func NewStore() *Store {
	store := &Store{sets: make(map[Kind]*partitionSet, len(Kinds))}
	for _, kind := range Kinds {
		store.sets[kind] = newPartitionSet()
	}
	return store
}

/*
IngestPage adds a fetched page to the partition set of kind.

Description: Entries whose id is already present are skipped, so re-ingesting
an overlapping page (a retried fetch) never duplicates anything. Existing
entries keep their positions. Entries without an id, without a valid status or
of the other kind are ignored.

Parameters:
  - kind: Kind
  - entries: []Entry (one remote page)

Returns:
  - int: number of entries actually inserted
*/
func (store *Store) IngestPage(kind Kind, entries []Entry) int {
	set := store.sets[kind]
	if set == nil {
		return 0
	}

	inserted := 0
	for _, entry := range entries {
		if !entry.Persisted() || !entry.Status.IsValid() || entry.Kind() != kind {
			continue
		}
		if _, exists := set.index[entry.ID]; exists {
			continue
		}
		set.append(entry)
		inserted++
	}

	return inserted
}

/*
Apply replaces previous with updated in the partition set of kind.

Description: previous is located by id. When the status is unchanged the entry
is overwritten at its current position; otherwise it is removed from its old
bucket and appended to the bucket of updated.Status. A previous entry that is
not cached (never persisted, or its page not loaded yet) makes this a plain
insert.

Parameters:
  - kind: Kind
  - previous: Entry (pre-mutation state)
  - updated: Entry (server-confirmed state)
*/
func (store *Store) Apply(kind Kind, previous, updated Entry) {
	set := store.sets[kind]
	if set == nil || !updated.Persisted() {
		return
	}

	// The confirmed id wins; a create has no previous id at all.
	lookup := previous.ID
	if lookup == 0 {
		lookup = updated.ID
	}

	if status, found := set.index[lookup]; found && status == updated.Status && lookup == updated.ID {
		if i := set.position(status, lookup); i >= 0 {
			set.buckets[status][i] = updated
			return
		}
	}

	set.detach(lookup)
	if lookup != updated.ID {
		set.detach(updated.ID)
	}

	if updated.Status.IsValid() {
		set.append(updated)
	}
}

// Remove deletes entry (by id) from whichever bucket of kind holds it.
// It reports whether anything was removed.
func (store *Store) Remove(kind Kind, entry Entry) bool {
	set := store.sets[kind]
	if set == nil || !entry.Persisted() {
		return false
	}

	_, _, removed := set.detach(entry.ID)
	return removed
}

// IsEmpty reports whether every bucket of kind is empty.
func (store *Store) IsEmpty(kind Kind) bool {
	set := store.sets[kind]
	return set == nil || len(set.index) == 0
}

// DefaultNonEmptyStatus returns the first status, in vocabulary order, whose
// bucket of kind holds at least one entry.
func (store *Store) DefaultNonEmptyStatus(kind Kind) (Status, bool) {
	set := store.sets[kind]
	if set == nil {
		return StatusNone, false
	}

	for _, status := range Statuses {
		if len(set.buckets[status]) > 0 {
			return status, true
		}
	}
	return StatusNone, false
}

// # Read Helpers

// Bucket returns a copy of the entries of kind in status, in insertion order.
func (store *Store) Bucket(kind Kind, status Status) []Entry {
	set := store.sets[kind]
	if set == nil {
		return []Entry{}
	}
	return append([]Entry{}, set.buckets[status]...)
}

// Sizes returns the size of every bucket of kind. All statuses are present.
func (store *Store) Sizes(kind Kind) map[Status]int {
	sizes := make(map[Status]int, len(Statuses))
	set := store.sets[kind]
	for _, status := range Statuses {
		if set != nil {
			sizes[status] = len(set.buckets[status])
		} else {
			sizes[status] = 0
		}
	}
	return sizes
}

// Find returns the cached entry of kind with the given id.
func (store *Store) Find(kind Kind, id int64) (Entry, bool) {
	set := store.sets[kind]
	if set == nil {
		return Entry{}, false
	}

	status, found := set.index[id]
	if !found {
		return Entry{}, false
	}
	if i := set.position(status, id); i >= 0 {
		return set.buckets[status][i], true
	}
	return Entry{}, false
}

// Clear empties every bucket of kind, keeping the keys.
func (store *Store) Clear(kind Kind) {
	if _, ok := store.sets[kind]; ok {
		store.sets[kind] = newPartitionSet()
	}
}
