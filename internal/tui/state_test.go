package tui

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestViewState_SaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state", "tui_state.json")

	// Missing file => default state.
	if st := loadViewState(path); st.Version != 1 || len(st.Trees) != 0 {
		t.Fatalf("expected default state; got %#v", st)
	}

	want := &viewState{
		Version: 1,
		Trees: map[string]treeState{
			"/reqs": {Document: "REQ", Cursors: map[string]string{"REQ": "REQ002", "SYS": "SYS001"}},
		},
	}
	if err := saveViewState(path, want); err != nil {
		t.Fatalf("saveViewState: %v", err)
	}
	if got := loadViewState(path); !reflect.DeepEqual(want, got) {
		t.Fatalf("roundtrip mismatch:\nwant: %#v\ngot:  %#v", want, got)
	}
}

func TestQuit_SavesAndRestoresPosition(t *testing.T) {
	m, _ := newTestModel(t)
	m.opts.StatePath = filepath.Join(t.TempDir(), "tui_state.json")

	m = press(t, m, "tab", "j", "q")

	again := newAppModel(m.ctx, m.opts)
	if again.active != 1 {
		t.Fatalf("expected REQ tab restored; got %d", again.active)
	}
	tb := again.tab()
	if got := tb.table.Item(tb.row()).UID(); got != "REQ002" {
		t.Fatalf("expected cursor on REQ002; got %s", got)
	}
}
