package privacy

import "testing"

func TestStripPrivateTags(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "no tags", input: "plain content", want: "plain content"},
		{name: "single block", input: "keep <private>secret</private> this", want: "keep  this"},
		{name: "multiple blocks", input: "<private>a</private>x<private>b</private>", want: "x"},
		{name: "multiline block", input: "before <private>line1\nline2</private> after", want: "before  after"},
		{name: "surrounding whitespace trimmed", input: "  <private>s</private> kept  ", want: "kept"},
		{name: "empty", input: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripPrivateTags(tt.input); got != tt.want {
				t.Errorf("StripPrivateTags(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestHasOnlyPrivateContent(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"<private>everything</private>", true},
		{"  <private>a</private>\n<private>b</private>  ", true},
		{"", true},
		{"public part <private>secret</private>", false},
		{"all public", false},
	}
	for _, tt := range tests {
		if got := HasOnlyPrivateContent(tt.input); got != tt.want {
			t.Errorf("HasOnlyPrivateContent(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
