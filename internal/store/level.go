package store

import (
	"fmt"
	"strconv"
	"strings"
)

// Level is a dotted-decimal position inside a document. A trailing zero
// component marks a heading ("2.0", "1.2.0").
type Level struct {
	parts []int
}

func ParseLevel(s string) (Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Level{}, fmt.Errorf("empty level")
	}
	fields := strings.Split(s, ".")
	parts := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil || n < 0 {
			return Level{}, fmt.Errorf("invalid level %q", s)
		}
		parts = append(parts, n)
	}
	return Level{parts: parts}, nil
}

func MustLevel(s string) Level {
	l, err := ParseLevel(s)
	if err != nil {
		panic(err)
	}
	return l
}

func (l Level) IsZero() bool { return len(l.parts) == 0 }

func (l Level) String() string {
	out := make([]string, len(l.parts))
	for i, p := range l.parts {
		out[i] = strconv.Itoa(p)
	}
	return strings.Join(out, ".")
}

// Heading reports whether the level ends in the title marker.
func (l Level) Heading() bool {
	return len(l.parts) > 1 && l.parts[len(l.parts)-1] == 0
}

// Number is the level without the heading marker.
func (l Level) Number() string {
	if l.Heading() {
		return Level{parts: l.parts[:len(l.parts)-1]}.String()
	}
	return l.String()
}

// Depth is the number of written components, heading marker included.
func (l Level) Depth() int { return len(l.parts) }

// Next is the level of an item inserted right after l. Under a heading the
// first child is numbered 1; otherwise the last component is incremented.
func (l Level) Next() Level {
	if l.IsZero() {
		return Level{parts: []int{1}}
	}
	parts := append([]int(nil), l.parts...)
	if l.Heading() {
		parts[len(parts)-1] = 1
		return Level{parts: parts}
	}
	parts[len(parts)-1]++
	return Level{parts: parts}
}

func (l Level) Less(o Level) bool {
	for i := 0; i < len(l.parts) && i < len(o.parts); i++ {
		if l.parts[i] != o.parts[i] {
			return l.parts[i] < o.parts[i]
		}
	}
	return len(l.parts) < len(o.parts)
}

func (l Level) Equal(o Level) bool { return l.String() == o.String() }
