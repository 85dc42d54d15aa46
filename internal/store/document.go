package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DocumentConfigFile marks a directory as a document.
const DocumentConfigFile = ".doorstop.yml"

// skipFile excludes a directory (and everything below it) from the tree.
const skipFile = ".doorstop.skip"

// Document is a named, ordered set of items stored in one directory.
type Document struct {
	tree *Tree

	Prefix string
	Parent string
	Sep    string
	Digits int
	Path   string

	// Defaults are applied to items created in this document.
	Defaults map[string]any
	// ReviewedAttrs are custom attributes that take part in the review stamp.
	ReviewedAttrs []string

	items []*Item
}

type documentFile struct {
	Settings struct {
		Prefix string `yaml:"prefix"`
		Parent string `yaml:"parent"`
		Sep    string `yaml:"sep"`
		Digits int    `yaml:"digits"`
	} `yaml:"settings"`
	Attributes struct {
		Defaults map[string]any `yaml:"defaults"`
		Reviewed []string       `yaml:"reviewed"`
	} `yaml:"attributes"`
}

func loadDocument(dir string) (*Document, error) {
	b, err := os.ReadFile(filepath.Join(dir, DocumentConfigFile))
	if err != nil {
		return nil, err
	}
	var f documentFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Join(dir, DocumentConfigFile), err)
	}
	if strings.TrimSpace(f.Settings.Prefix) == "" {
		return nil, fmt.Errorf("%s: missing settings.prefix", filepath.Join(dir, DocumentConfigFile))
	}
	d := &Document{
		Prefix:        f.Settings.Prefix,
		Parent:        f.Settings.Parent,
		Sep:           f.Settings.Sep,
		Digits:        f.Settings.Digits,
		Path:          dir,
		Defaults:      f.Attributes.Defaults,
		ReviewedAttrs: f.Attributes.Reviewed,
	}
	if d.Digits <= 0 {
		d.Digits = 3
	}
	if err := d.loadItems(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Document) loadItems() error {
	entries, err := os.ReadDir(d.Path)
	if err != nil {
		return err
	}
	var items []*Item
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".yml" {
			continue
		}
		path := filepath.Join(d.Path, name)
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		data, err := decodeItem(b)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		items = append(items, &Item{
			doc:  d,
			uid:  strings.TrimSuffix(name, ".yml"),
			path: path,
			data: data,
			disk: data.clone(),
		})
	}
	d.items = items
	return nil
}

// String is the document prefix.
func (d *Document) String() string { return d.Prefix }

// Title is "<parent> -> <prefix>" for child documents and the bare prefix
// for roots.
func (d *Document) Title() string {
	if d.Parent != "" {
		return d.Parent + " -> " + d.Prefix
	}
	return d.Prefix
}

// Items returns the active items ordered by level, then uid.
func (d *Document) Items() []*Item {
	out := make([]*Item, 0, len(d.items))
	for _, it := range d.items {
		if it.Active() {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Level(), out[j].Level()
		if !a.Equal(b) {
			return a.Less(b)
		}
		return out[i].uid < out[j].uid
	})
	return out
}

// Reload re-reads every item file of the document.
func (d *Document) Reload() error {
	return d.loadItems()
}

func (d *Document) find(uid string) *Item {
	for _, it := range d.items {
		if strings.EqualFold(it.uid, uid) {
			return it
		}
	}
	return nil
}

func (d *Document) forget(it *Item) {
	for i, x := range d.items {
		if x == it {
			d.items = append(d.items[:i], d.items[i+1:]...)
			return
		}
	}
}

// nextUID returns the uid following the highest number in use, counting
// inactive items too so numbers are never reused.
func (d *Document) nextUID() string {
	maxN := 0
	stem := d.Prefix + d.Sep
	for _, it := range d.items {
		if !strings.HasPrefix(strings.ToUpper(it.uid), strings.ToUpper(stem)) {
			continue
		}
		n, err := strconv.Atoi(it.uid[len(stem):])
		if err == nil && n > maxN {
			maxN = n
		}
	}
	return fmt.Sprintf("%s%0*d", stem, d.Digits, maxN+1)
}

func (d *Document) lastLevel() Level {
	items := d.Items()
	if len(items) == 0 {
		return Level{}
	}
	return items[len(items)-1].Level()
}

// addItem creates and saves a new item at level.
func (d *Document) addItem(level Level) (*Item, error) {
	if level.IsZero() {
		level = d.lastLevel().Next()
	}
	uid := d.nextUID()
	it := &Item{
		doc:  d,
		uid:  uid,
		path: filepath.Join(d.Path, uid+".yml"),
		data: itemData{Active: true, Normative: true, Custom: map[string]any{}},
	}
	if err := it.SetAttributes(d.Defaults); err != nil {
		return nil, fmt.Errorf("defaults of %s: %w", d.Prefix, err)
	}
	it.data.Level = level
	it.data.Derived = false
	if level.Heading() {
		it.data.Normative = false
	}
	if _, err := os.Stat(it.path); err == nil {
		return nil, errWrite("create", it.path, errors.New("file exists"))
	}
	if err := it.Save(); err != nil {
		return nil, err
	}
	d.items = append(d.items, it)
	return it, nil
}
