// Package gitrepo reports the version-control state of a requirements tree.
// It only reads; committing stays with the user.
package gitrepo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

type Status struct {
	IsRepo bool `json:"isRepo" yaml:"isRepo"`

	Root string `json:"root,omitempty" yaml:"root,omitempty"`

	Branch   string `json:"branch,omitempty" yaml:"branch,omitempty"`
	Upstream string `json:"upstream,omitempty" yaml:"upstream,omitempty"`
	Head     string `json:"head,omitempty" yaml:"head,omitempty"`

	Dirty    bool `json:"dirty" yaml:"dirty"`
	Unmerged bool `json:"unmerged" yaml:"unmerged"`

	InProgressKind string `json:"inProgressKind,omitempty" yaml:"inProgressKind,omitempty"` // merge|rebase|cherry-pick|revert

	Ahead  int `json:"ahead,omitempty" yaml:"ahead,omitempty"`
	Behind int `json:"behind,omitempty" yaml:"behind,omitempty"`

	// Changed lists modified, added or untracked item files below dir as
	// uids, sorted.
	Changed []string `json:"changed,omitempty" yaml:"changed,omitempty"`
}

// Label is the short form shown in the TUI: "main*" when item files
// changed, "" outside a repository.
func (s Status) Label() string {
	if !s.IsRepo {
		return ""
	}
	l := s.Branch
	if l == "" {
		l = s.Head
	}
	if len(s.Changed) > 0 {
		l += "*"
	}
	if s.InProgressKind != "" {
		l += " (" + s.InProgressKind + ")"
	}
	return l
}

// GetStatus inspects the repository containing dir. A directory outside
// any repository (or without git installed) yields IsRepo=false.
func GetStatus(ctx context.Context, dir string) (Status, error) {
	root, err := git(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return Status{IsRepo: false}, nil
	}
	root = strings.TrimSpace(root)
	if root == "" {
		return Status{}, errors.New("git rev-parse returned empty root")
	}

	branch, _ := git(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	head, _ := git(ctx, dir, "rev-parse", "--short", "HEAD")
	upstream, _ := git(ctx, dir, "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{u}")

	// The pathspec limits the report to dir.
	porcelain, _ := git(ctx, dir, "status", "--porcelain=v1", "--untracked-files=all", "--", ".")
	dirty, unmerged, changed := parsePorcelain(porcelain)

	st := Status{
		IsRepo:         true,
		Root:           root,
		Branch:         strings.TrimSpace(branch),
		Upstream:       strings.TrimSpace(upstream),
		Head:           strings.TrimSpace(head),
		Dirty:          dirty,
		Unmerged:       unmerged,
		InProgressKind: detectInProgress(ctx, dir),
		Changed:        changed,
	}
	if st.Upstream != "" {
		if counts, err := git(ctx, dir, "rev-list", "--left-right", "--count", "HEAD...@{u}"); err == nil {
			if a, b, ok := parseAheadBehind(counts); ok {
				st.Ahead, st.Behind = a, b
			}
		}
	}
	return st, nil
}

func git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), msg)
	}
	return stdout.String(), nil
}

func parsePorcelain(out string) (dirty bool, unmerged bool, changed []string) {
	seen := map[string]bool{}
	for _, ln := range strings.Split(out, "\n") {
		ln = strings.TrimRight(ln, "\r")
		if len(ln) < 4 {
			continue
		}
		xy := ln[:2]
		if strings.TrimSpace(xy) == "" {
			continue
		}
		dirty = true
		if isUnmergedXY(xy) {
			unmerged = true
		}
		path := ln[3:]
		// Renames read "old -> new".
		if _, after, ok := strings.Cut(path, " -> "); ok {
			path = after
		}
		path = strings.Trim(path, `"`)
		if uid, ok := itemUID(path); ok && !seen[uid] {
			seen[uid] = true
			changed = append(changed, uid)
		}
	}
	sort.Strings(changed)
	return dirty, unmerged, changed
}

// itemUID maps an item file path to its uid. Document configs and hidden
// files are not items.
func itemUID(path string) (string, bool) {
	base := filepath.Base(filepath.FromSlash(path))
	if !strings.HasSuffix(base, ".yml") || strings.HasPrefix(base, ".") {
		return "", false
	}
	return strings.TrimSuffix(base, ".yml"), true
}

func detectInProgress(ctx context.Context, dir string) string {
	for _, c := range []struct{ ref, kind string }{
		{"MERGE_HEAD", "merge"},
		{"REBASE_HEAD", "rebase"},
		{"CHERRY_PICK_HEAD", "cherry-pick"},
		{"REVERT_HEAD", "revert"},
	} {
		cmd := exec.CommandContext(ctx, "git", "rev-parse", "--verify", "-q", c.ref)
		cmd.Dir = dir
		if cmd.Run() == nil {
			return c.kind
		}
	}
	return ""
}

func isUnmergedXY(xy string) bool {
	if len(xy) != 2 {
		return false
	}
	switch xy {
	case "DD", "AU", "UD", "UA", "DU", "AA", "UU":
		return true
	}
	return xy[0] == 'U' || xy[1] == 'U'
}

// parseAheadBehind reads "<ahead>\t<behind>" from rev-list --left-right --count.
func parseAheadBehind(out string) (ahead int, behind int, ok bool) {
	fields := strings.Fields(strings.TrimSpace(out))
	if len(fields) != 2 {
		return 0, 0, false
	}
	a, err1 := strconv.Atoi(fields[0])
	b, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return a, b, true
}
