package main

import (
	"strings"
	"testing"
)

func TestLintSource(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "valid marker",
			src:  "package q\nconst Q = `--sql 2dec2340-5b1c-4a4e-9d7f-0c51d1b0f001\nSELECT 1`\n",
		},
		{
			name: "not sql",
			src:  "package q\nconst Greeting = \"hello there\"\n",
		},
		{
			name: "missing marker",
			src:  "package q\nconst Q = `SELECT count FROM usage_counters`\n",
			want: []string{"missing or invalid"},
		},
		{
			name: "upper-case uuid",
			src:  "package q\nconst Q = `--sql 2DEC2340-5B1C-4A4E-9D7F-0C51D1B0F001\nSELECT 1`\n",
			want: []string{"missing or invalid"},
		},
		{
			name: "duplicate marker",
			src: "package q\nconst (\n\tA = `--sql 2dec2340-5b1c-4a4e-9d7f-0c51d1b0f001\nSELECT 1`\n" +
				"\tB = `--sql 2dec2340-5b1c-4a4e-9d7f-0c51d1b0f001\nSELECT 2`\n)\n",
			want: []string{"already used"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l := newLinter()
			if err := l.lintSource("q.go", []byte(tc.src)); err != nil {
				t.Fatalf("lint: %v", err)
			}
			if len(l.violations) != len(tc.want) {
				t.Fatalf("violations = %+v, want %d", l.violations, len(tc.want))
			}
			for i, v := range l.violations {
				if !strings.Contains(v.message, tc.want[i]) {
					t.Fatalf("message %q does not contain %q", v.message, tc.want[i])
				}
			}
		})
	}
}

func TestLintSourceParseError(t *testing.T) {
	if err := newLinter().lintSource("bad.go", []byte("package")); err == nil {
		t.Fatal("expected parse error")
	}
}
