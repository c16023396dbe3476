package censor

import (
	"path/filepath"
	"testing"
)

func TestCensor_Check(t *testing.T) {
	var c Censor

	jsonPath := filepath.Join("test_data", "words.json")
	if err := c.LoadFromJSON(jsonPath); err != nil {
		t.Fatalf("failed to load words: %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("want 3 banned words, got %d", c.Len())
	}

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"No match", "hello world", false},
		{"Empty text", "", false},

		{"Match single word", "spam", true},
		{"Match derivative", "spammers everywhere", true},
		{"Exception word", "watching spamalot tonight", false},
		{"Match suffix pattern", "what a scam", true},
		{"Match suffix derivative", "scammers again", true},
		{"Mixed case", "SPAM", true},
		{"Punctuation", "you idiot!", true},
		{"Exception with punctuation", "idiotproof, finally.", false},
		{"Mixed text", "spamalot and spam", true},
		{"Homoglyph attack 1", "5pam", true},
		{"Homoglyph attack 2", "1d1ot", true},
		{"Homoglyph attack 3", "$c@m", true},
		{"False positive to avoid", "scampi for dinner", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Check(tt.text)
			if got != tt.want {
				t.Errorf("Check(%q) = %v; want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestCensor_Empty(t *testing.T) {
	c := New()
	if c.Check("spam scam idiot") {
		t.Error("want empty censor to accept any text")
	}
}

func TestCensor_LoadFromJSONMissingFile(t *testing.T) {
	c := New()
	err := c.LoadFromJSON(filepath.Join("test_data", "missing.json"))
	if err == nil {
		t.Error("want error loading a missing file")
	}
}
