// Package wake splits a transcribed utterance on the wake word.
package wake

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

const DefaultKeyword = "computer"

// minimal Jaro-Winkler score for a phonetic candidate to count as the keyword
const phoneticThreshold = 0.8

// Extract returns the trimmed text following the first occurrence of keyword.
// ok is false when the keyword is absent or nothing but whitespace follows it.
func Extract(utterance, keyword string) (string, bool) {
	if keyword == "" {
		return "", false
	}
	i := strings.Index(utterance, keyword)
	if i < 0 {
		return "", false
	}
	return remainder(utterance[i+len(keyword):])
}

type Matcher struct {
	Keyword    string
	IgnoreCase bool
	Phonetic   bool
}

func (m Matcher) keyword() string {
	if m.Keyword == "" {
		return DefaultKeyword
	}
	return m.Keyword
}

// Match behaves like Extract with the matcher's keyword, optionally folding
// case and falling back to a sound-alike word when the literal keyword is
// missing. Punctuation between the keyword and the command is dropped, so
// "computer, lights on" yields "lights on".
func (m Matcher) Match(utterance string) (string, bool) {
	kw := m.keyword()

	if !m.IgnoreCase {
		if i := strings.Index(utterance, kw); i >= 0 {
			return command(utterance[i+len(kw):])
		}
	} else if i := indexFold(utterance, kw); i >= 0 {
		return command(utterance[i+len(kw):])
	}

	if !m.Phonetic {
		return "", false
	}
	return phoneticMatch(utterance, kw)
}

func command(s string) (string, bool) {
	return remainder(strings.TrimLeftFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	}))
}

func remainder(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

// indexFold is strings.Index with simple case folding. Only ASCII-safe
// lowering is applied so byte offsets stay valid for the original string.
func indexFold(s, substr string) int {
	return strings.Index(lowerASCII(s), lowerASCII(substr))
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

// phoneticMatch scans the utterance word by word and wakes on the first word
// that shares a Double Metaphone code with the keyword and is close enough
// in spelling.
func phoneticMatch(utterance, kw string) (string, bool) {
	kp, ks := matchr.DoubleMetaphone(kw)

	pos := 0
	for pos < len(utterance) {
		start := pos
		for start < len(utterance) && !isWordByte(utterance[start]) {
			start++
		}
		end := start
		for end < len(utterance) && isWordByte(utterance[end]) {
			end++
		}
		if start == end {
			break
		}
		word := utterance[start:end]
		wp, ws := matchr.DoubleMetaphone(word)
		if codesOverlap(kp, ks, wp, ws) && matchr.JaroWinkler(lowerASCII(word), lowerASCII(kw), false) >= phoneticThreshold {
			return command(utterance[end:])
		}
		pos = end
	}
	return "", false
}

func codesOverlap(a1, a2, b1, b2 string) bool {
	for _, a := range []string{a1, a2} {
		if a == "" {
			continue
		}
		if a == b1 || a == b2 {
			return true
		}
	}
	return false
}

func isWordByte(c byte) bool {
	if c >= utf8.RuneSelf {
		return true
	}
	return c == '\'' || unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c))
}
