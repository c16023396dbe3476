// Package censor rejects user text containing banned vocabulary.
package censor

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"
)

type Word struct {
	Text       string   `json:"text"`
	Pattern    string   `json:"pattern"`
	Exceptions []string `json:"exceptions"`

	regexPattern *regexp.Regexp
}

type Censor struct {
	bannedWords []Word
}

// New returns an empty Censor instance. An empty Censor accepts any text.
func New() *Censor {
	return &Censor{}
}

// LoadFromJSON loads banned words from a JSON file and compiles regexes.
func (c *Censor) LoadFromJSON(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var words []Word
	if err := json.Unmarshal(data, &words); err != nil {
		return err
	}

	for i, word := range words {
		words[i].regexPattern, err = regexp.Compile(word.Pattern)
		if err != nil {
			return fmt.Errorf("failed to compile pattern %q: %w", word.Pattern, err)
		}
	}

	c.bannedWords = words
	return nil
}

// Len returns the number of loaded banned words.
func (c *Censor) Len() int {
	return len(c.bannedWords)
}

// homoglyphs maps look-alike letters to their latin counterparts.
var homoglyphs = strings.NewReplacer(
	"0", "o",
	"1", "i",
	"3", "e",
	"4", "a",
	"5", "s",
	"$", "s",
	"@", "a",
)

// tokens lowercases the text, folds homoglyphs and splits it on anything
// that is not a letter.
func tokens(text string) []string {
	text = homoglyphs.Replace(strings.ToLower(text))
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

// Check reports whether text contains a word that matches a banned pattern
// and isn't explicitly allowed in that word's exceptions.
func (c *Censor) Check(text string) bool {
	for _, w := range tokens(text) {
		for _, banned := range c.bannedWords {
			match := banned.regexPattern.FindString(w)
			if match == "" {
				continue
			}

			isException := false
			for _, exc := range banned.Exceptions {
				if exc == w {
					isException = true
					break
				}
			}

			if !isException {
				return true
			}
		}
	}

	return false
}
