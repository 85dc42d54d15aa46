package store

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Tree is the forest of documents found below Root.
type Tree struct {
	Root string

	docs []*Document
}

// DiscoverRoot walks up from start to the nearest version-control root and
// falls back to start itself.
func DiscoverRoot(start string) string {
	dir, err := filepath.Abs(start)
	if err != nil {
		return start
	}
	for {
		for _, marker := range []string{".git", ".hg", ".svn"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			abs, _ := filepath.Abs(start)
			return abs
		}
		dir = parent
	}
}

// Build loads every document below root.
func Build(root string) (*Tree, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	t := &Tree{Root: abs}
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != abs && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if _, err := os.Stat(filepath.Join(path, skipFile)); err == nil {
			return filepath.SkipDir
		}
		if _, err := os.Stat(filepath.Join(path, DocumentConfigFile)); err != nil {
			return nil
		}
		doc, err := loadDocument(path)
		if err != nil {
			return err
		}
		if existing, _ := t.FindDocument(doc.Prefix); existing != nil {
			return fmt.Errorf("duplicate document prefix %s: %s and %s", doc.Prefix, existing.Path, doc.Path)
		}
		doc.tree = t
		t.docs = append(t.docs, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.order()
	return t, nil
}

// order sorts documents parent first, siblings by prefix.
func (t *Tree) order() {
	children := map[string][]*Document{}
	var roots []*Document
	for _, d := range t.docs {
		if d.Parent == "" {
			roots = append(roots, d)
			continue
		}
		if p, _ := t.FindDocument(d.Parent); p == nil {
			roots = append(roots, d)
			continue
		}
		key := strings.ToUpper(d.Parent)
		children[key] = append(children[key], d)
	}
	byPrefix := func(ds []*Document) {
		sort.Slice(ds, func(i, j int) bool { return ds[i].Prefix < ds[j].Prefix })
	}
	byPrefix(roots)
	out := make([]*Document, 0, len(t.docs))
	var visit func(d *Document)
	visit = func(d *Document) {
		out = append(out, d)
		kids := children[strings.ToUpper(d.Prefix)]
		byPrefix(kids)
		for _, k := range kids {
			visit(k)
		}
	}
	for _, r := range roots {
		visit(r)
	}
	t.docs = out
}

// Documents returns the documents, parents before children.
func (t *Tree) Documents() []*Document {
	return append([]*Document(nil), t.docs...)
}

func (t *Tree) FindDocument(prefix string) (*Document, error) {
	for _, d := range t.docs {
		if strings.EqualFold(d.Prefix, prefix) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", prefix, ErrDocumentNotFound)
}

func (t *Tree) FindItem(uid string) (*Item, error) {
	for _, d := range t.docs {
		if it := d.find(uid); it != nil {
			return it, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", uid, ErrItemNotFound)
}

// AddItem creates a new item in the document with the given prefix. A zero
// level places it after the last item.
func (t *Tree) AddItem(prefix string, level Level) (*Item, error) {
	d, err := t.FindDocument(prefix)
	if err != nil {
		return nil, err
	}
	return d.addItem(level)
}

// Children returns the documents whose parent is d.
func (t *Tree) Children(d *Document) []*Document {
	var out []*Document
	for _, x := range t.docs {
		if strings.EqualFold(x.Parent, d.Prefix) {
			out = append(out, x)
		}
	}
	return out
}
