package usong

import "testing"

func TestIndexingTotality(t *testing.T) {
	lib := NewLibrary()
	id := lib.AddPersistent(Song{Title: "a"})

	// In-range, non-deleted: returns the real song.
	if got := lib.Song(id); got.Title != "a" {
		t.Fatalf("Song(%d) = %+v, want title a", id, got)
	}

	// Out-of-range persistent and temporary ids never panic and
	// resolve to the ghost.
	for _, bad := range []SongId{SongId(999), tmpSongId(999), SongId(-1)} {
		got := lib.Song(bad)
		if !got.Deleted {
			t.Errorf("Song(%d) = %+v, want ghost", bad, got)
		}
	}
}

func TestTombstoneNeverResurrected(t *testing.T) {
	lib := NewLibrary()
	id := lib.AddPersistent(Song{Title: "a"})
	lib.Delete(id)

	got := lib.Song(id)
	if !got.Deleted {
		t.Fatalf("Song(%d) after delete = %+v, want ghost", id, got)
	}

	// Deleting again is a no-op, not a re-raise of RemoveData beyond
	// what already happened.
	lib.ConsumeUpdate()
	lib.Delete(id)
	if lib.Update() != UpdateNone {
		t.Errorf("double delete raised update to %v, want none", lib.Update())
	}
}

func TestTombstoneReusedBeforeExtend(t *testing.T) {
	lib := NewLibrary()
	a := lib.AddPersistent(Song{Title: "a"})
	_ = lib.AddPersistent(Song{Title: "b"})
	lib.Delete(a)

	reused := lib.AddPersistent(Song{Title: "c"})
	if reused != a {
		t.Errorf("AddPersistent after delete reused id %d, want %d", reused, a)
	}
	if got := lib.Song(reused); got.Title != "c" {
		t.Errorf("Song(%d) = %+v, want title c", reused, got)
	}
}

func TestUpdateLevelMonotonic(t *testing.T) {
	lib := NewLibrary()
	id := lib.AddPersistent(Song{Title: "a"})
	if lib.Update() != UpdateNewData {
		t.Fatalf("Update() after add = %v, want NewData", lib.Update())
	}

	lib.ConsumeUpdate()
	lib.UpdateDuration(id, 1)
	if lib.Update() != UpdateMetadata {
		t.Fatalf("Update() after duration refine = %v, want Metadata", lib.Update())
	}

	// RemoveData is more severe and must win even over an
	// already-pending Metadata level.
	lib.Delete(id)
	if lib.Update() != UpdateRemoveData {
		t.Fatalf("Update() after delete = %v, want RemoveData", lib.Update())
	}
}

func TestConsumeUpdateResets(t *testing.T) {
	lib := NewLibrary()
	lib.AddPersistent(Song{Title: "a"})
	if u := lib.ConsumeUpdate(); u != UpdateNewData {
		t.Fatalf("ConsumeUpdate() = %v, want NewData", u)
	}
	if lib.Update() != UpdateNone {
		t.Fatalf("Update() after consume = %v, want None", lib.Update())
	}
}

func TestTrailingTombstonesTruncated(t *testing.T) {
	lib := NewLibrary()
	a := lib.AddPersistent(Song{Title: "a"})
	b := lib.AddPersistent(Song{Title: "b"})
	lib.Delete(b)
	lib.TruncateTrailingTombstones()

	if lib.persistent.Len() != 1 {
		t.Fatalf("persistent len after truncate = %d, want 1", lib.persistent.Len())
	}
	if got := lib.Song(a); got.Title != "a" {
		t.Errorf("surviving song id changed: Song(%d) = %+v", a, got)
	}
}
