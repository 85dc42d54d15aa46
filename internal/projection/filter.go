package projection

import (
	"sort"

	"github.com/sahilm/fuzzy"
)

type rowSource []string

func (s rowSource) String(i int) string { return s[i] }
func (s rowSource) Len() int { return len(s) }

// Filter returns the rows whose uid, header or text fuzzily match pattern,
// in table order. An empty pattern matches every row.
func (t *Table) Filter(pattern string) []int {
	if pattern == "" {
		out := make([]int, len(t.items))
		for i := range out {
			out[i] = i
		}
		return out
	}
	src := make(rowSource, len(t.items))
	for i, it := range t.items {
		src[i] = it.UID() + " " + it.Header() + " " + it.Text()
	}
	matches := fuzzy.FindFrom(pattern, src)
	out := make([]int, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Index)
	}
	sort.Ints(out)
	return out
}
