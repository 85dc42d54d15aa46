package main

import (
	"reflect"
	"testing"
)

func TestRewriteDirectItemLookupArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"doorhole"},
			want: []string{"doorhole"},
		},
		{
			name: "direct uid first token",
			in:   []string{"doorhole", "REQ001"},
			want: []string{"doorhole", "render", "REQ001"},
		},
		{
			name: "uid with separator",
			in:   []string{"doorhole", "LLT-007"},
			want: []string{"doorhole", "render", "LLT-007"},
		},
		{
			name: "direct uid after value flag",
			in:   []string{"doorhole", "--dir", "./reqs", "REQ001"},
			want: []string{"doorhole", "--dir", "./reqs", "render", "REQ001"},
		},
		{
			name: "direct uid after equals flag",
			in:   []string{"doorhole", "--dir=./reqs", "REQ001"},
			want: []string{"doorhole", "--dir=./reqs", "render", "REQ001"},
		},
		{
			name: "direct uid after bool flag",
			in:   []string{"doorhole", "--pretty", "REQ001"},
			want: []string{"doorhole", "--pretty", "render", "REQ001"},
		},
		{
			name: "direct uid after double dash",
			in:   []string{"doorhole", "--dir", "./reqs", "--", "REQ001"},
			want: []string{"doorhole", "--dir", "./reqs", "--", "render", "REQ001"},
		},
		{
			name: "normal subcommand not rewritten",
			in:   []string{"doorhole", "render", "REQ001"},
			want: []string{"doorhole", "render", "REQ001"},
		},
		{
			name: "unknown command not rewritten",
			in:   []string{"doorhole", "wat"},
			want: []string{"doorhole", "wat"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteDirectItemLookupArgs(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("rewriteDirectItemLookupArgs:\n got: %#v\nwant: %#v", got, tt.want)
			}
		})
	}
}
