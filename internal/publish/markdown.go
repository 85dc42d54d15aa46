package publish

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"doorhole/internal/projection"
	"doorhole/internal/render"
	"doorhole/internal/store"
)

// Locator resolves a linked uid to the prefix of its document.
type Locator func(uid string) (prefix string, ok bool)

// ItemMarkdown is the page of one item: the composed heading and text,
// its custom attributes and its links.
func ItemMarkdown(it *store.Item, locate Locator) string {
	var buf bytes.Buffer
	buf.WriteString(render.Compose(it))
	buf.WriteString("\n")

	custom := it.Custom()
	if len(custom) > 0 {
		keys := make([]string, 0, len(custom))
		for k := range custom {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteString("\n| Attribute | Value |\n|---|---|\n")
		for _, k := range keys {
			fmt.Fprintf(&buf, "| %s | %s |\n", k, cellEscape(projection.Display(custom[k])))
		}
	}

	if uids := it.LinkUIDs(); len(uids) > 0 {
		links := make([]string, 0, len(uids))
		for _, uid := range uids {
			if prefix, ok := locate(uid); ok {
				links = append(links, fmt.Sprintf("[%s](../%s/%s.md)", uid, prefix, uid))
			} else {
				links = append(links, uid)
			}
		}
		fmt.Fprintf(&buf, "\nLinks: %s\n", strings.Join(links, ", "))
	}
	return buf.String()
}

// IndexMarkdown lists the active items of doc in level order, indented by
// level depth.
func IndexMarkdown(doc *store.Document) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n", doc.Title())
	for _, it := range doc.Items() {
		num := it.Level().Number()
		indent := strings.Repeat("  ", strings.Count(num, "."))
		label := it.Header()
		if label == "" {
			label = it.UID()
		}
		entry := fmt.Sprintf("[%s %s](%s.md)", num, label, it.UID())
		if it.Heading() {
			entry = "**" + entry + "**"
		}
		fmt.Fprintf(&buf, "%s- %s\n", indent, entry)
	}
	return buf.String()
}

func cellEscape(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", "<br>")
}
