package wake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	cases := []struct {
		name      string
		utterance string
		want      string
		ok        bool
	}{
		{"command after keyword", "computer turn on the lights", "turn on the lights", true},
		{"keyword mid sentence", "hey computer what time is it", "what time is it", true},
		{"trailing whitespace only", "please computer   ", "", false},
		{"keyword at the very end", "ok computer", "", false},
		{"no keyword", "turn on the lights", "", false},
		{"empty utterance", "", "", false},
		{"remainder is trimmed", "computer \t  tell me a joke \n", "tell me a joke", true},
		{"first occurrence wins", "computer ask the computer why", "ask the computer why", true},
		{"case sensitive", "Computer turn on the lights", "", false},
		{"keyword glued to word", "computers are neat", "s are neat", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Extract(tc.utterance, DefaultKeyword)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExtract_EmptyKeyword(t *testing.T) {
	_, ok := Extract("computer do things", "")
	assert.False(t, ok)
}

func TestMatcher_DefaultsToExtract(t *testing.T) {
	m := Matcher{}

	got, ok := m.Match("computer turn on the lights")
	assert.True(t, ok)
	assert.Equal(t, "turn on the lights", got)

	_, ok = m.Match("please computer   ")
	assert.False(t, ok)
}

func TestMatcher_IgnoreCase(t *testing.T) {
	m := Matcher{Keyword: "computer", IgnoreCase: true}

	got, ok := m.Match("Computer, turn on the lights")
	assert.True(t, ok)
	assert.Equal(t, "turn on the lights", got)

	got, ok = m.Match("Hey COMPUTER   Play Jazz ")
	assert.True(t, ok)
	assert.Equal(t, "Play Jazz", got)
}

func TestMatcher_Phonetic(t *testing.T) {
	m := Matcher{Keyword: "computer", Phonetic: true}

	got, ok := m.Match("computor what is the weather")
	assert.True(t, ok)
	assert.Equal(t, "what is the weather", got)

	_, ok = m.Match("please turn on the lights")
	assert.False(t, ok)

	_, ok = m.Match("computor")
	assert.False(t, ok, "sound-alike keyword without a command is still a no-op")
}

func TestMatcher_LiteralBeatsPhonetic(t *testing.T) {
	m := Matcher{Keyword: "computer", Phonetic: true}

	got, ok := m.Match("computor says computer stop")
	assert.True(t, ok)
	assert.Equal(t, "stop", got)
}

func TestMatcher_DropsLeadingPunctuation(t *testing.T) {
	m := Matcher{}

	got, ok := m.Match("Hey computer, what time is it?")
	assert.True(t, ok)
	assert.Equal(t, "what time is it?", got)

	got, ok = m.Match("computer... play some jazz.")
	assert.True(t, ok)
	assert.Equal(t, "play some jazz.", got)

	_, ok = m.Match("Ok computer?")
	assert.False(t, ok, "punctuation alone is not a command")

	_, ok = m.Match("Computer, turn on the lights.")
	assert.False(t, ok, "case-sensitive by default")

	got, ok = Matcher{IgnoreCase: true}.Match("Computer, turn on the lights.")
	assert.True(t, ok)
	assert.Equal(t, "turn on the lights.", got)
}
