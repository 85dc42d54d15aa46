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

// Standard attribute keys as they appear in item files. uid, path and root
// are derived from the file location and never written.
const (
	AttrUID        = "uid"
	AttrPath       = "path"
	AttrRoot       = "root"
	AttrActive     = "active"
	AttrNormative  = "normative"
	AttrDerived    = "derived"
	AttrReviewed   = "reviewed"
	AttrLevel      = "level"
	AttrHeader     = "header"
	AttrRef        = "ref"
	AttrReferences = "references"
	AttrLinks      = "links"
	AttrText       = "text"
)

var standardAttrs = map[string]bool{
	AttrUID: true, AttrPath: true, AttrRoot: true, AttrActive: true,
	AttrNormative: true, AttrDerived: true, AttrReviewed: true, AttrLevel: true,
	AttrHeader: true, AttrRef: true, AttrReferences: true, AttrLinks: true, AttrText: true,
}

// IsStandard reports whether attr is one of the attributes every item has.
func IsStandard(attr string) bool { return standardAttrs[attr] }

// Link points at a parent item. Stamp is the parent's review stamp at the
// time the link was last reviewed and may be empty.
type Link struct {
	UID   string
	Stamp string
}

type itemData struct {
	Active     bool
	Normative  bool
	Derived    bool
	Level      Level
	Header     string
	Text       string
	Ref        string
	References any
	Links      []Link
	Reviewed   string

	Custom map[string]any
}

func (d itemData) clone() itemData {
	out := d
	out.Links = append([]Link(nil), d.Links...)
	out.Custom = make(map[string]any, len(d.Custom))
	for k, v := range d.Custom {
		out.Custom[k] = v
	}
	return out
}

// Item is one requirement or heading file of a Document.
type Item struct {
	doc  *Document
	uid  string
	path string

	data itemData
	// disk is the state last read from or written to the item file.
	disk itemData
}

func (it *Item) UID() string { return it.uid }
func (it *Item) Path() string { return it.path }
func (it *Item) Document() *Document { return it.doc }
func (it *Item) Active() bool { return it.data.Active }
func (it *Item) Normative() bool { return it.data.Normative }
func (it *Item) Derived() bool { return it.data.Derived }
func (it *Item) Level() Level { return it.data.Level }
func (it *Item) Header() string { return it.data.Header }
func (it *Item) Text() string { return it.data.Text }
func (it *Item) Ref() string { return it.data.Ref }
func (it *Item) Links() []Link { return append([]Link(nil), it.data.Links...) }
func (it *Item) Heading() bool { return it.data.Level.Heading() }
func (it *Item) Custom() map[string]any {
	out := make(map[string]any, len(it.data.Custom))
	for k, v := range it.data.Custom {
		out[k] = v
	}
	return out
}

// LinkUIDs returns the uids this item links to, in file order.
func (it *Item) LinkUIDs() []string {
	out := make([]string, 0, len(it.data.Links))
	for _, l := range it.data.Links {
		out = append(out, l.UID)
	}
	return out
}

// Get returns the native value of attr: bool, int, string, Level, []string
// for links, or whatever the YAML decoder produced for custom attributes.
// Unknown attributes yield nil.
func (it *Item) Get(attr string) any {
	switch attr {
	case AttrUID:
		return it.uid
	case AttrPath:
		return it.path
	case AttrRoot:
		if it.doc != nil && it.doc.tree != nil {
			return it.doc.tree.Root
		}
		return ""
	case AttrActive:
		return it.data.Active
	case AttrNormative:
		return it.data.Normative
	case AttrDerived:
		return it.data.Derived
	case AttrReviewed:
		return it.Reviewed()
	case AttrLevel:
		return it.data.Level
	case AttrHeader:
		return it.data.Header
	case AttrText:
		return it.data.Text
	case AttrRef:
		return it.data.Ref
	case AttrReferences:
		return it.data.References
	case AttrLinks:
		return it.LinkUIDs()
	}
	if v, ok := it.data.Custom[attr]; ok {
		return v
	}
	return nil
}

// Set changes one attribute in memory. Call Save to persist it.
func (it *Item) Set(attr string, value any) error {
	switch attr {
	case AttrUID, AttrPath, AttrRoot:
		return fmt.Errorf("%s: %w", attr, ErrReadOnly)
	case AttrActive, AttrNormative, AttrDerived:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%s: expected bool, got %T", attr, value)
		}
		switch attr {
		case AttrActive:
			it.data.Active = b
		case AttrNormative:
			it.data.Normative = b
		default:
			it.data.Derived = b
		}
		return nil
	case AttrReviewed:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%s: expected bool, got %T", attr, value)
		}
		if b {
			it.Review()
		} else {
			it.data.Reviewed = ""
		}
		return nil
	case AttrLevel:
		l, err := toLevel(value)
		if err != nil {
			return fmt.Errorf("%s: %w", attr, err)
		}
		it.data.Level = l
		return nil
	case AttrHeader:
		it.data.Header = fmt.Sprint(value)
		return nil
	case AttrText:
		it.data.Text = fmt.Sprint(value)
		return nil
	case AttrRef:
		it.data.Ref = fmt.Sprint(value)
		return nil
	case AttrReferences:
		it.data.References = value
		return nil
	case AttrLinks:
		links, err := toLinks(value, it.data.Links)
		if err != nil {
			return fmt.Errorf("%s: %w", attr, err)
		}
		it.data.Links = links
		return nil
	}
	if strings.TrimSpace(attr) == "" {
		return errors.New("empty attribute name")
	}
	if it.data.Custom == nil {
		it.data.Custom = map[string]any{}
	}
	it.data.Custom[attr] = value
	return nil
}

// SetAttributes applies every entry of attrs. It stops at the first
// rejected attribute; entries applied before it stay applied in memory.
func (it *Item) SetAttributes(attrs map[string]any) error {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := it.Set(k, attrs[k]); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the item file. On failure the in-memory state is put back to
// what is on disk, so a rejected write never shows as applied.
func (it *Item) Save() error {
	b, err := encodeItem(it.data)
	if err != nil {
		it.resync()
		return errWrite("encode", it.path, err)
	}
	if err := writeFileAtomic(it.path, b); err != nil {
		it.resync()
		return errWrite("save", it.path, err)
	}
	it.disk = it.data.clone()
	return nil
}

// Reload re-reads the item file.
func (it *Item) Reload() error {
	b, err := os.ReadFile(it.path)
	if err != nil {
		return err
	}
	d, err := decodeItem(b)
	if err != nil {
		return fmt.Errorf("%s: %w", it.path, err)
	}
	it.data = d
	it.disk = d.clone()
	return nil
}

func (it *Item) resync() {
	it.data = it.disk.clone()
	_ = it.Reload()
}

// Delete removes the item file and forgets the item.
func (it *Item) Delete() error {
	if err := os.Remove(it.path); err != nil {
		return errWrite("delete", it.path, err)
	}
	if it.doc != nil {
		it.doc.forget(it)
	}
	return nil
}

func toLevel(v any) (Level, error) {
	switch t := v.(type) {
	case Level:
		if t.IsZero() {
			return Level{}, errors.New("empty level")
		}
		return t, nil
	case string:
		return ParseLevel(t)
	case int:
		return ParseLevel(strconv.Itoa(t))
	case float64:
		return ParseLevel(strconv.FormatFloat(t, 'f', -1, 64))
	}
	return Level{}, fmt.Errorf("unsupported level type %T", v)
}

// toLinks converts v to links. Uids already in prev keep their stamp.
func toLinks(v any, prev []Link) ([]Link, error) {
	var uids []string
	switch t := v.(type) {
	case nil:
	case []Link:
		return append([]Link(nil), t...), nil
	case []string:
		uids = t
	case string:
		uids = strings.FieldsFunc(t, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\n' || r == '\t'
		})
	default:
		return nil, fmt.Errorf("unsupported links type %T", v)
	}
	stamps := make(map[string]string, len(prev))
	for _, l := range prev {
		stamps[strings.ToUpper(l.UID)] = l.Stamp
	}
	out := make([]Link, 0, len(uids))
	for _, u := range uids {
		u = strings.TrimSpace(u)
		if u != "" {
			out = append(out, Link{UID: u, Stamp: stamps[strings.ToUpper(u)]})
		}
	}
	return out, nil
}

func decodeItem(b []byte) (itemData, error) {
	d := itemData{Active: true, Normative: true, Custom: map[string]any{}}

	var root yaml.Node
	if err := yaml.Unmarshal(b, &root); err != nil {
		return d, err
	}
	if root.Kind == 0 {
		return d, nil
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return d, errors.New("item file is not a mapping")
	}
	m := root.Content[0]
	for i := 0; i+1 < len(m.Content); i += 2 {
		key := m.Content[i].Value
		val := m.Content[i+1]
		var err error
		switch key {
		case AttrActive:
			err = val.Decode(&d.Active)
		case AttrNormative:
			err = val.Decode(&d.Normative)
		case AttrDerived:
			err = val.Decode(&d.Derived)
		case AttrLevel:
			// Raw scalar text: a float decode would turn 1.10 into 1.1.
			d.Level, err = ParseLevel(val.Value)
		case AttrHeader:
			d.Header, err = decodeString(val)
		case AttrText:
			d.Text, err = decodeString(val)
		case AttrRef:
			d.Ref, err = decodeString(val)
		case AttrReviewed:
			d.Reviewed, err = decodeString(val)
		case AttrReferences:
			err = val.Decode(&d.References)
		case AttrLinks:
			d.Links, err = decodeLinks(val)
		case AttrUID, AttrPath, AttrRoot:
			// Derived from the file location.
		default:
			var v any
			err = val.Decode(&v)
			d.Custom[key] = v
		}
		if err != nil {
			return d, fmt.Errorf("attribute %s: %w", key, err)
		}
	}
	return d, nil
}

func decodeString(n *yaml.Node) (string, error) {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null" {
		return "", nil
	}
	var s string
	if err := n.Decode(&s); err != nil {
		return "", err
	}
	return s, nil
}

func decodeLinks(n *yaml.Node) ([]Link, error) {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null" {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, errors.New("expected a list")
	}
	out := make([]Link, 0, len(n.Content))
	for _, e := range n.Content {
		switch e.Kind {
		case yaml.ScalarNode:
			out = append(out, Link{UID: e.Value})
		case yaml.MappingNode:
			// "- REQ001: <stamp>"
			for i := 0; i+1 < len(e.Content); i += 2 {
				stamp, _ := decodeString(e.Content[i+1])
				out = append(out, Link{UID: e.Content[i].Value, Stamp: stamp})
			}
		default:
			return nil, errors.New("unsupported link entry")
		}
	}
	return out, nil
}

func encodeItem(d itemData) ([]byte, error) {
	if d.Level.IsZero() {
		return nil, errors.New("item has no level")
	}
	m := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key string, val *yaml.Node) {
		m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, val)
	}

	values := map[string]*yaml.Node{
		AttrActive:    boolNode(d.Active),
		AttrDerived:   boolNode(d.Derived),
		AttrHeader:    textNode(d.Header),
		AttrLevel:     {Kind: yaml.ScalarNode, Value: d.Level.String()},
		AttrLinks:     linksNode(d.Links),
		AttrNormative: boolNode(d.Normative),
		AttrRef:       textNode(d.Ref),
		AttrReviewed:  nullableNode(d.Reviewed),
		AttrText:      textNode(d.Text),
	}
	if d.References != nil {
		var n yaml.Node
		if err := n.Encode(d.References); err != nil {
			return nil, fmt.Errorf("attribute %s: %w", AttrReferences, err)
		}
		values[AttrReferences] = &n
	}
	for k, v := range d.Custom {
		var n yaml.Node
		if err := n.Encode(v); err != nil {
			return nil, fmt.Errorf("attribute %s: %w", k, err)
		}
		values[k] = &n
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		add(k, values[k])
	}

	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{m}}
	return yaml.Marshal(doc)
}

func boolNode(b bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(b)}
}

func textNode(s string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
	if strings.Contains(s, "\n") {
		n.Style = yaml.LiteralStyle
	} else if s == "" {
		n.Style = yaml.SingleQuotedStyle
	}
	return n
}

func nullableNode(s string) *yaml.Node {
	if s == "" {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func linksNode(links []Link) *yaml.Node {
	n := &yaml.Node{Kind: yaml.SequenceNode}
	if len(links) == 0 {
		n.Style = yaml.FlowStyle
	}
	for _, l := range links {
		if l.Stamp == "" {
			n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: l.UID})
			continue
		}
		n.Content = append(n.Content, &yaml.Node{
			Kind: yaml.MappingNode,
			Content: []*yaml.Node{
				{Kind: yaml.ScalarNode, Tag: "!!str", Value: l.UID},
				{Kind: yaml.ScalarNode, Tag: "!!str", Value: l.Stamp},
			},
		})
	}
	return n
}

func writeFileAtomic(path string, b []byte) error {
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
