package ucontrol

import "testing"

func TestRoundTrip(t *testing.T) {
	cases := []Msg{
		{Kind: PlayPause},
		{Kind: PlayPause, Bool: boolPtr(true)},
		{Kind: PlayPause, Bool: boolPtr(false)},
		{Kind: NextSong, Count: 1},
		{Kind: NextSong, Count: 3},
		{Kind: PrevSong, Count: 1},
		{Kind: SetVolume, Float: floatPtr(0.5)},
		{Kind: VolumeUp},
		{Kind: VolumeUp, Float: floatPtr(0.1)},
		{Kind: VolumeDown},
		{Kind: Mute},
		{Kind: Mute, Bool: boolPtr(true)},
		{Kind: Mute, Bool: boolPtr(false)},
		{Kind: Shuffle},
		{Kind: PlaylistJump, Count: 2},
		{Kind: Close},
		{Kind: LoadNewSongs},
		{Kind: SeekTo, Duration: 1500000000, HasDuration: true},
		{Kind: FastForward},
		{Kind: FastForward, Duration: 2000000000, HasDuration: true},
		{Kind: Rewind},
		{Kind: Alias, AliasName: "repeat"},
		{Kind: Alias, AliasName: "palb", AliasArgs: []string{"Metallica"}},
		{Kind: SetPlaylist, QueryText: "any@rng"},
		{Kind: PushPlaylist, QueryText: "alb:x", PlayNow: true},
		{Kind: PopPlaylist, Count: 1},
		{Kind: PlayTmp, Paths: []string{"/a.mp3", "/b.mp3"}},
		{Kind: SetPlaylistEndAction},
		{Kind: SetPlaylistEndAction, AliasName: "repeat", HasAliasName: true},
		{Kind: SetPlaylistAddPolicy, AddPolicy: PolicyMixIn},
		{Kind: Reload},
	}

	for _, m := range cases {
		rendered := m.Render()
		parsed, err := ParseToken(rendered)
		if err != nil {
			t.Fatalf("ParseToken(render(%+v)=%q): %v", m, rendered, err)
		}
		if parsed.Render() != rendered {
			t.Errorf("round trip mismatch: %+v -> %q -> %+v -> %q", m, rendered, parsed, parsed.Render())
		}
	}
}

func TestParseListSplitsOnSpace(t *testing.T) {
	msgs, err := ParseList("pp=play ns=1 v=0.5")
	if err != nil {
		t.Fatalf("ParseList: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("ParseList returned %d messages, want 3", len(msgs))
	}
	if msgs[0].Kind != PlayPause || msgs[1].Kind != NextSong || msgs[2].Kind != SetVolume {
		t.Errorf("unexpected kinds: %+v", msgs)
	}
}

func TestUnknownTokenIsError(t *testing.T) {
	if _, err := ParseToken("pp=banana"); err == nil {
		t.Errorf("ParseToken(pp=banana) succeeded, want error")
	}
	if _, err := ParseToken("bogus"); err == nil {
		t.Errorf("ParseToken(bogus) succeeded, want error")
	}
}
