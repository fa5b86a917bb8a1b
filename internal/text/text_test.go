package text

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGraphemeCount(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"HELLO", 5},
		{"HI THERE", 8},
		{"café", 4},
		{"👍🏽", 1},  // emoji + skin tone modifier is one grapheme
		{"a👨‍👩‍👧b", 3}, // ZWJ family sequence is one grapheme
	}
	for _, c := range cases {
		if got := GraphemeCount(c.in); got != c.want {
			t.Errorf("GraphemeCount(%q): expected %d, got %d", c.in, c.want, got)
		}
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"hello", "HELLO"},
		{"  hi   there  ", "HI THERE"},
		{"a\tb\nc", "A B C"},
		{"", ""},
		{"   ", ""},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q): expected %q, got %q", c.in, c.want, got)
		}
	}
}

func TestValidate(t *testing.T) {
	if bad := Validate("HELLO WORLD! 42"); len(bad) != 0 {
		t.Errorf("expected valid message, got %v", bad)
	}
	if bad := Validate("GO, GO-GO: OK?"); len(bad) != 0 {
		t.Errorf("expected punctuation to pass, got %v", bad)
	}

	bad := Validate("HI~THERE")
	if len(bad) != 1 {
		t.Fatalf("expected 1 invalid rune, got %v", bad)
	}
	if bad[0].Rune != '~' || bad[0].Position != 2 {
		t.Errorf("expected '~' at grapheme 2, got %v", bad[0])
	}

	// Lowercase is not in the allowed set; Validate expects normalized input.
	if bad := Validate("hello"); len(bad) != 5 {
		t.Errorf("expected 5 invalid runes for lowercase, got %d", len(bad))
	}
}

func TestSanitize(t *testing.T) {
	if got := Sanitize("héllo ~world~"); got != "HLLO WORLD" {
		t.Errorf("expected %q, got %q", "HLLO WORLD", got)
	}
	if got := Sanitize("  ok  "); got != "OK" {
		t.Errorf("expected %q, got %q", "OK", got)
	}
}

func TestCheckLength(t *testing.T) {
	if err := CheckLength("SHORT", 20); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := CheckLength("THIS MESSAGE IS FAR TOO LONG FOR A WAND", 20); err == nil {
		t.Error("expected length error")
	}
}

func TestLoadPresets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "presets.yaml")
	content := []byte(`presets:
  - text: hello world
    speed_pxps: 250
    direction: left
  - text: "bad~chars"
    speed_pxps: 100
  - text: ""
  - text: ok
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	presets, err := LoadPresets(path, 20)
	if err != nil {
		t.Fatalf("LoadPresets: %v", err)
	}
	if len(presets) != 2 {
		t.Fatalf("expected 2 valid presets, got %d: %v", len(presets), presets)
	}
	if presets[0].Text != "HELLO WORLD" || presets[0].Direction != "left" {
		t.Errorf("unexpected first preset: %+v", presets[0])
	}
	if presets[1].Text != "OK" || presets[1].Direction != "right" {
		t.Errorf("expected direction defaulted to right, got %+v", presets[1])
	}
}

func TestLoadPresets_MissingFile(t *testing.T) {
	if _, err := LoadPresets("/does/not/exist.yaml", 20); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSuggest(t *testing.T) {
	presets := []Preset{
		{Text: "HELLO WORLD"},
		{Text: "HELLO THERE"},
		{Text: "GOODBYE"},
	}
	got := Suggest("hello", presets, 10)
	if len(got) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(got))
	}
	got = Suggest("hello", presets, 1)
	if len(got) != 1 {
		t.Fatalf("expected suggestion cap at 1, got %d", len(got))
	}
	if got := Suggest("", presets, 10); len(got) != 3 {
		t.Errorf("empty prefix should match all, got %d", len(got))
	}
	if got := Suggest("zzz", presets, 10); len(got) != 0 {
		t.Errorf("expected no matches, got %d", len(got))
	}
}
