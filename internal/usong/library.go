package usong

import "time"

// LibraryUpdate is the monotonic severity of the most severe
// unacknowledged change to the library, matching the exact discriminants
// of original_source/src/core/library/library_update.rs.
type LibraryUpdate int

const (
	UpdateNone LibraryUpdate = iota
	UpdateMetadata
	UpdateNewData
	UpdateRemoveData
)

func (u LibraryUpdate) String() string {
	switch u {
	case UpdateMetadata:
		return "metadata"
	case UpdateNewData:
		return "new-data"
	case UpdateRemoveData:
		return "remove-data"
	default:
		return "none"
	}
}

// raise sets u to the more severe of u and other.
func (u *LibraryUpdate) raise(other LibraryUpdate) {
	if other > *u {
		*u = other
	}
}

// Library is the indexed song catalogue: a persistent vector (saved to
// library.json) and a temporary vector (ephemeral, e.g. songs played
// directly from paths via PlayTmp). Both are copy-on-write. Iteration
// skips tombstones; indexing never fails.
type Library struct {
	persistent ALCVec[Song]
	temporary  ALCVec[Song]

	changed bool
	update  LibraryUpdate
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{
		persistent: NewALCVec[Song](nil),
		temporary:  NewALCVec[Song](nil),
	}
}

// Song indexes by SongId. It never fails: an out-of-range or tombstoned
// id resolves to Ghost.
func (l *Library) Song(id SongId) Song {
	if id.IsTemporary() {
		i := tmpIndex(id)
		if i < 0 || i >= l.temporary.Len() {
			return Ghost
		}
		s := l.temporary.Get(i)
		if s.Deleted {
			return Ghost
		}
		return s
	}
	i := int(id)
	if i < 0 || i >= l.persistent.Len() {
		return Ghost
	}
	s := l.persistent.Get(i)
	if s.Deleted {
		return Ghost
	}
	return s
}

// Len returns the number of live (non-tombstoned) persistent songs.
func (l *Library) Len() int {
	n := 0
	for _, s := range l.persistent.Slice() {
		if !s.Deleted {
			n++
		}
	}
	return n
}

// Changed reports whether the library has unsaved mutations.
func (l *Library) Changed() bool { return l.changed }

// ClearChanged clears the dirty flag, called after a successful save.
func (l *Library) ClearChanged() { l.changed = false }

// Update returns the most severe unacknowledged change level.
func (l *Library) Update() LibraryUpdate { return l.update }

// ConsumeUpdate resets the update level to None and returns the level it
// had before the reset, so an observer sees it exactly once.
func (l *Library) ConsumeUpdate() LibraryUpdate {
	u := l.update
	l.update = UpdateNone
	return u
}

// AllIDs returns the SongId of every non-tombstoned persistent song, in
// index order.
func (l *Library) AllIDs() []SongId {
	ids := make([]SongId, 0, l.persistent.Len())
	for i, s := range l.persistent.Slice() {
		if !s.Deleted {
			ids = append(ids, SongId(i))
		}
	}
	return ids
}

// AddTemporary appends a temporary song and returns its SongId.
func (l *Library) AddTemporary(s Song) SongId {
	i := l.temporary.Len()
	l.temporary.Extend(s)
	l.changed = true
	l.update.raise(UpdateNewData)
	return tmpSongId(i)
}

// AddPersistent inserts s into the first tombstone slot, or appends if
// none is free, and returns the resulting SongId. This implements
// spec §4.3 step 4: "insert new songs preferentially into existing
// tombstone slots... before extending the vector."
func (l *Library) AddPersistent(s Song) SongId {
	data := l.persistent.Mut()
	for i, existing := range data {
		if existing.Deleted {
			data[i] = s
			l.changed = true
			l.update.raise(UpdateNewData)
			return SongId(i)
		}
	}
	i := l.persistent.Len()
	l.persistent.Extend(s)
	l.changed = true
	l.update.raise(UpdateNewData)
	return SongId(i)
}

// Delete tombstones a persistent song. Already-deleted or
// out-of-range ids are a no-op (never resurrected, never double-counted).
func (l *Library) Delete(id SongId) {
	if id.IsTemporary() {
		i := tmpIndex(id)
		if i < 0 || i >= l.temporary.Len() {
			return
		}
		data := l.temporary.Mut()
		if data[i].Deleted {
			return
		}
		data[i].Deleted = true
		l.changed = true
		l.update.raise(UpdateRemoveData)
		return
	}
	i := int(id)
	if i < 0 || i >= l.persistent.Len() {
		return
	}
	data := l.persistent.Mut()
	if data[i].Deleted {
		return
	}
	data[i].Deleted = true
	l.changed = true
	l.update.raise(UpdateRemoveData)
}

// UpdateDuration refines a song's duration once the sink has decoded
// enough to know it precisely, per spec §3's "duration refined when
// first decoded".
func (l *Library) UpdateDuration(id SongId, duration time.Duration) {
	if id.IsTemporary() {
		i := tmpIndex(id)
		if i < 0 || i >= l.temporary.Len() {
			return
		}
		data := l.temporary.Mut()
		data[i].Duration = duration
	} else {
		i := int(id)
		if i < 0 || i >= l.persistent.Len() {
			return
		}
		data := l.persistent.Mut()
		data[i].Duration = duration
	}
	l.changed = true
	l.update.raise(UpdateMetadata)
}

// TruncateTrailingTombstones drops tombstones from the tail of the
// persistent vector, per spec §3's "trailing tombstones... may be
// truncated on save".
func (l *Library) TruncateTrailingTombstones() {
	data := l.persistent.Slice()
	n := len(data)
	for n > 0 && data[n-1].Deleted {
		n--
	}
	l.persistent.Truncate(n)
}

// PersistentSnapshot returns a cheap (refcounted) clone of the
// persistent vector for handing to a background job or HTTP response
// assembly without blocking the loop.
func (l *Library) PersistentSnapshot() ALCVec[Song] { return l.persistent.Clone() }

// TemporarySnapshot mirrors PersistentSnapshot for the temporary vector.
func (l *Library) TemporarySnapshot() ALCVec[Song] { return l.temporary.Clone() }

// ReplacePersistent swaps in a whole new persistent vector and marks
// the library changed.
func (l *Library) ReplacePersistent(songs []Song) {
	l.persistent = NewALCVec(songs)
	l.changed = true
}

// RetainTemporary keeps only the temporary songs whose SongId is in
// keep, tombstoning/truncating the rest, matching spec §4.3's save step
// "compute the set of temporary song IDs referenced by any playlist...
// tombstone and tail-truncate the rest."
func (l *Library) RetainTemporary(keep map[SongId]bool) {
	data := l.temporary.Mut()
	for i := range data {
		if !keep[tmpSongId(i)] {
			data[i].Deleted = true
		}
	}
	n := len(data)
	for n > 0 && data[n-1].Deleted {
		n--
	}
	l.temporary.Truncate(n)
}
