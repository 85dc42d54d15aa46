package store

import (
	"fmt"
	"strings"
)

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue is one finding of Check.
type Issue struct {
	UID      string   `json:"uid" yaml:"uid"`
	Document string   `json:"document" yaml:"document"`
	Severity Severity `json:"severity" yaml:"severity"`
	Message  string   `json:"message" yaml:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.UID, i.Severity, i.Message)
}

// Check validates every active item of the tree.
func (t *Tree) Check() []Issue {
	var out []Issue
	for _, d := range t.docs {
		out = append(out, t.CheckDocument(d)...)
	}
	return out
}

// CheckDocument validates the active items of one document.
func (t *Tree) CheckDocument(d *Document) []Issue {
	var out []Issue
	add := func(it *Item, sev Severity, format string, args ...any) {
		out = append(out, Issue{UID: it.uid, Document: d.Prefix, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	linked := map[string]bool{}
	children := t.Children(d)
	for _, c := range children {
		for _, ci := range c.Items() {
			for _, l := range ci.data.Links {
				linked[strings.ToUpper(l.UID)] = true
			}
		}
	}

	levels := map[string]string{}
	for _, it := range d.Items() {
		if prev, ok := levels[it.Level().String()]; ok {
			add(it, SeverityWarning, "duplicate level %s (also %s)", it.Level(), prev)
		} else {
			levels[it.Level().String()] = it.uid
		}

		if !it.Reviewed() {
			add(it, SeverityWarning, "unreviewed changes")
		}
		if it.Normative() && !it.Heading() && strings.TrimSpace(it.Text()) == "" {
			add(it, SeverityWarning, "no text")
		}

		for _, l := range it.data.Links {
			parent, err := t.FindItem(l.UID)
			if err != nil {
				add(it, SeverityError, "linked to unknown item: %s", l.UID)
				continue
			}
			if !parent.Active() {
				add(it, SeverityError, "linked to inactive item: %s", l.UID)
				continue
			}
			if d.Parent != "" && !strings.EqualFold(parent.doc.Prefix, d.Parent) {
				add(it, SeverityWarning, "linked to non-parent item: %s", l.UID)
			}
			if l.Stamp != "" && l.Stamp != parent.Stamp() {
				add(it, SeverityWarning, "suspect link: %s", l.UID)
			}
		}

		if d.Parent != "" && it.Normative() && !it.Heading() && !it.Derived() && len(it.data.Links) == 0 {
			add(it, SeverityWarning, "no links to parent document")
		}
		if len(children) > 0 && it.Normative() && !it.Heading() && !linked[strings.ToUpper(it.uid)] {
			add(it, SeverityWarning, "no links from child document")
		}
	}
	return out
}

// HasErrors reports whether issues contains an error for uid.
func HasErrors(issues []Issue, uid string) bool {
	for _, i := range issues {
		if i.Severity == SeverityError && strings.EqualFold(i.UID, uid) {
			return true
		}
	}
	return false
}
