package slug

import "testing"

func TestMake(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Spring Hack 2026", "spring-hack-2026"},
		{"  AI & ML Showdown!  ", "ai-ml-showdown"},
		{"already-a-slug", "already-a-slug"},
		{"Multiple   Spaces", "multiple-spaces"},
		{"---", ""},
		{"", ""},
		{"Héllo Wörld", "h-llo-w-rld"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Make(tt.input)
			if got != tt.want {
				t.Errorf("Make(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestWithSuffix(t *testing.T) {
	if got := WithSuffix("spring", 0); got != "spring" {
		t.Errorf("WithSuffix(spring, 0) = %q, want spring", got)
	}
	if got := WithSuffix("spring", 1); got != "spring" {
		t.Errorf("WithSuffix(spring, 1) = %q, want spring", got)
	}
	if got := WithSuffix("spring", 2); got != "spring-2" {
		t.Errorf("WithSuffix(spring, 2) = %q, want spring-2", got)
	}
}
