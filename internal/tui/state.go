package tui

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// viewState restores the last screen on relaunch. It is best effort:
// missing or invalid files yield an empty state.
type viewState struct {
	Version int `json:"version"`

	// Trees is keyed by the tree root.
	Trees map[string]treeState `json:"trees,omitempty"`
}

type treeState struct {
	Document string `json:"document,omitempty"`
	// Cursors maps a document prefix to the uid under the cursor.
	Cursors map[string]string `json:"cursors,omitempty"`
}

func loadViewState(path string) *viewState {
	st := &viewState{Version: 1}
	if strings.TrimSpace(path) == "" {
		return st
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return st
	}
	if err := json.Unmarshal(b, st); err != nil {
		return &viewState{Version: 1}
	}
	if st.Version == 0 {
		st.Version = 1
	}
	return st
}

func saveViewState(path string, st *viewState) error {
	if st == nil || strings.TrimSpace(path) == "" {
		return nil
	}
	if st.Version == 0 {
		st.Version = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// restoreState selects the document and rows of the last session.
func (m *appModel) restoreState() {
	if m.opts.StatePath == "" || m.opts.Tree == nil {
		return
	}
	ts, ok := loadViewState(m.opts.StatePath).Trees[m.opts.Tree.Root]
	if !ok {
		return
	}
	for i, t := range m.tabs {
		prefix := t.table.Prefix()
		if strings.EqualFold(prefix, ts.Document) {
			m.active = i
		}
		if uid := ts.Cursors[prefix]; uid != "" {
			t.selectUID(uid)
		}
	}
}

func (m *appModel) saveState() {
	if m.opts.StatePath == "" || m.opts.Tree == nil {
		return
	}
	st := loadViewState(m.opts.StatePath)
	if st.Trees == nil {
		st.Trees = map[string]treeState{}
	}
	ts := treeState{Cursors: map[string]string{}}
	if t := m.tab(); t != nil {
		ts.Document = t.table.Prefix()
	}
	for _, t := range m.tabs {
		if row := t.row(); row >= 0 {
			ts.Cursors[t.table.Prefix()] = t.table.Item(row).UID()
		}
	}
	st.Trees[m.opts.Tree.Root] = ts
	if err := saveViewState(m.opts.StatePath, st); err != nil {
		m.log.Warn("saving view state failed", "path", m.opts.StatePath, "err", err)
	}
}
