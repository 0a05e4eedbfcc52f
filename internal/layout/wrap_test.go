package layout

import (
	"math"
	"reflect"
	"testing"
	"unicode/utf8"
)

// runeWidth measures one unit per rune.
func runeWidth(s string) float64 {
	return float64(utf8.RuneCountInString(s))
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width float64
		want  []string
	}{
		{"blank", "   ", 10, nil},
		{"empty", "", 10, nil},
		{"fits", "Culto de domingo", 20, []string{"Culto de domingo"}},
		{"wraps at words", "Culto de domingo", 10, []string{"Culto de", "domingo"}},
		{"collapses spaces", "a   b", 10, []string{"a b"}},
		{"newline", "um\ndois", 10, []string{"um", "dois"}},
		{"long word", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"long word after short", "ab abcdefgh", 4, []string{"ab", "abcd", "efgh"}},
		{"multibyte", "ãããããã", 4, []string{"ãããã", "ãã"}},
		{"no limit", "a b c", 0, []string{"a b c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Wrap(tt.text, tt.width, runeWidth)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Wrap(%q, %v) = %q, want %q", tt.text, tt.width, got, tt.want)
			}
		})
	}
}

func TestWrap_GlyphWiderThanLine(t *testing.T) {
	got := Wrap("abc", 0.5, runeWidth)
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("expected one rune per line, got %q", got)
	}
}

func TestWrap_LinesFit(t *testing.T) {
	text := "Quero trazer à memória o que me pode dar esperança Lamentações 3:21"
	for _, width := range []float64{5, 12, 30} {
		for _, line := range Wrap(text, width, runeWidth) {
			if runeWidth(line) > width {
				t.Errorf("width %v: line %q too wide", width, line)
			}
		}
	}
}

func TestFitContain(t *testing.T) {
	box := Rect{X: 10, Y: 20, W: 100, H: 50}
	tests := []struct {
		name       string
		srcW, srcH float64
		want       Rect
	}{
		{"wider letterboxes", 400, 100, Rect{X: 10, Y: 32.5, W: 100, H: 25}},
		{"taller pillarboxes", 100, 100, Rect{X: 35, Y: 20, W: 50, H: 50}},
		{"same aspect fills", 200, 100, Rect{X: 10, Y: 20, W: 100, H: 50}},
		{"degenerate source", 0, 10, Rect{X: 10, Y: 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FitContain(tt.srcW, tt.srcH, box)
			for _, d := range []float64{got.X - tt.want.X, got.Y - tt.want.Y, got.W - tt.want.W, got.H - tt.want.H} {
				if math.Abs(d) > 1e-9 {
					t.Fatalf("FitContain = %+v, want %+v", got, tt.want)
				}
			}
		})
	}
}
