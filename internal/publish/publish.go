// Package publish writes documents as a directory of markdown pages: an
// index per document and one page per item.
package publish

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"doorhole/internal/store"
)

type Options struct {
	Overwrite bool
}

type Result struct {
	Written []string `json:"written" yaml:"written"`
}

// WriteTree publishes every document plus a top-level index.
func WriteTree(tree *store.Tree, toDir string, opt Options) (Result, error) {
	if tree == nil {
		return Result{}, errors.New("missing tree")
	}
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return Result{}, errors.New("missing --to")
	}
	toDir = filepath.Clean(toDir)
	if err := os.MkdirAll(toDir, 0o755); err != nil {
		return Result{}, err
	}

	var b strings.Builder
	b.WriteString("# Requirements\n\n")
	for _, d := range tree.Documents() {
		b.WriteString("- [" + d.Title() + "](" + d.Prefix + "/index.md)\n")
	}
	index := filepath.Join(toDir, "index.md")
	if err := writeFile(index, []byte(b.String()), opt.Overwrite); err != nil {
		return Result{}, err
	}

	res := Result{Written: []string{index}}
	for _, d := range tree.Documents() {
		r, err := WriteDocument(tree, d, toDir, opt)
		res.Written = append(res.Written, r.Written...)
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

// WriteDocument writes <toDir>/<prefix>/index.md and a page per active item.
// It stops at the first failed write.
func WriteDocument(tree *store.Tree, doc *store.Document, toDir string, opt Options) (Result, error) {
	if doc == nil {
		return Result{}, errors.New("missing document")
	}
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return Result{}, errors.New("missing --to")
	}
	docDir := filepath.Join(filepath.Clean(toDir), doc.Prefix)
	if err := os.MkdirAll(docDir, 0o755); err != nil {
		return Result{}, err
	}

	index := filepath.Join(docDir, "index.md")
	if err := writeFile(index, []byte(IndexMarkdown(doc)), opt.Overwrite); err != nil {
		return Result{}, err
	}
	written := []string{index}

	locate := func(uid string) (string, bool) {
		if tree == nil {
			return "", false
		}
		it, err := tree.FindItem(uid)
		if err != nil {
			return "", false
		}
		return it.Document().Prefix, true
	}
	for _, it := range doc.Items() {
		p := filepath.Join(docDir, it.UID()+".md")
		if err := writeFile(p, []byte(ItemMarkdown(it, locate)), opt.Overwrite); err != nil {
			return Result{Written: written}, err
		}
		written = append(written, p)
	}
	return Result{Written: written}, nil
}

func writeFile(path string, b []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New("file exists (use --overwrite): " + path)
		}
	}
	return os.WriteFile(path, b, 0o644)
}
