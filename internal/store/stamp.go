package store

import (
	"crypto/md5"
	"encoding/base64"
	"fmt"
)

// Stamp fingerprints the reviewable content of the item: uid, text, ref,
// linked uids and the document's extra reviewed attributes.
func (it *Item) Stamp() string {
	values := []any{it.uid, it.data.Text, it.data.Ref}
	for _, l := range it.data.Links {
		values = append(values, l.UID)
	}
	if it.doc != nil {
		for _, k := range it.doc.ReviewedAttrs {
			values = append(values, it.data.Custom[k])
		}
	}
	h := md5.New()
	for _, v := range values {
		fmt.Fprint(h, v)
	}
	return base64.URLEncoding.EncodeToString(h.Sum(nil))
}

// Reviewed reports whether the stored review stamp matches the content.
func (it *Item) Reviewed() bool {
	return it.data.Reviewed != "" && it.data.Reviewed == it.Stamp()
}

// Review records the current content as reviewed, including the stamps of
// linked parents that can be resolved.
func (it *Item) Review() {
	it.data.Reviewed = it.Stamp()
	if it.doc == nil || it.doc.tree == nil {
		return
	}
	for i, l := range it.data.Links {
		if parent, err := it.doc.tree.FindItem(l.UID); err == nil {
			it.data.Links[i].Stamp = parent.Stamp()
		}
	}
}
