package corpus

import "testing"

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		line             string
		empty, isComment bool
	}{
		{"", true, false},
		{"   \t", true, false},
		{"# comment", false, true},
		{"   # indented comment", false, true},
		{"example.com", false, false},
		{"example.com # trailing", false, false},
	}
	for _, tt := range tests {
		e, c := classifyLine(tt.line)
		if e != tt.empty || c != tt.isComment {
			t.Errorf("classifyLine(%q) = (%v, %v), want (%v, %v)", tt.line, e, c, tt.empty, tt.isComment)
		}
	}
}

func TestStripInlineComment(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"example.com # note", "example.com "},
		{"example.com\t# note", "example.com\t"},
		{"example.com/#fragment", "example.com/#fragment"},
		{"example.com/page#top # note", "example.com/page#top "},
		{"#", "#"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := stripInlineComment(tt.in); got != tt.want {
			t.Errorf("stripInlineComment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStripLineBOM(t *testing.T) {
	if got := stripLineBOM("\uFEFFexample.com"); got != "example.com" {
		t.Errorf("stripLineBOM = %q", got)
	}
	if got := stripLineBOM("example.com"); got != "example.com" {
		t.Errorf("stripLineBOM changed a clean line: %q", got)
	}
}
