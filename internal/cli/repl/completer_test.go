package repl

import (
	"strings"
	"testing"
)

func TestCompleter_Complete(t *testing.T) {
	c := NewCompleter()

	tests := []struct {
		prefix string
		want   []string
	}{
		{"l", []string{"login", "list", "logout"}},
		{"lo", []string{"login", "logout"}},
		{"tr", []string{"transfer"}},
		{"p", []string{"pending", "peers"}},
		{"ex", []string{"exit"}},
		{"zzz", nil},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			got := c.Complete(tt.prefix)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Complete(%q) = %v, want %v", tt.prefix, got, tt.want)
			}
		})
	}
}

func TestCompleter_Suggest(t *testing.T) {
	c := NewCompleter()

	tests := []struct {
		word string
		want string
	}{
		{"tran", "transfer"},
		{"tranfer", "transfer"},
		{"lgin", "login"},
		{"regster", "register"},
		{"quti", "quit"},
		{"completelywrong", ""},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			if got := c.Suggest(tt.word); got != tt.want {
				t.Errorf("Suggest(%q) = %q, want %q", tt.word, got, tt.want)
			}
		})
	}
}

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"login", "login", 0},
		{"kitten", "sitting", 3},
		{"list", "lsit", 2},
	}
	for _, tt := range tests {
		if got := editDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("editDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
