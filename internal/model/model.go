// Package model holds the data shared by the viva client, the remote API
// adapter, and report rendering.
package model

import (
	"fmt"
	"strings"
)

// Topic is one training topic offered by the backend question bank.
type Topic struct {
	ID             int
	Name           string
	Category       string
	TotalQuestions int
}

// Machine is the legacy question source keyed by shop-floor machine.
type Machine struct {
	ID             int
	Name           string
	TotalQuestions int
}

// SourceKind selects which backend question source a session draws from.
type SourceKind string

const (
	SourceTopic   SourceKind = "topic"
	SourceMachine SourceKind = "machine"
)

// Source is the selected question source for one session.
type Source struct {
	Kind SourceKind
	ID   int
	Name string
}

// Valid reports whether the source identifies something selectable.
func (s Source) Valid() bool {
	return (s.Kind == SourceTopic || s.Kind == SourceMachine) && s.ID > 0
}

// Employee is a verified (or freeform) candidate identity.
type Employee struct {
	PunchID     string `json:"punch_id"`
	Name        string `json:"name"`
	Department  string `json:"department"`
	Designation string `json:"designation"`
	Photo       string `json:"photo,omitempty"`
}

// Level is the ordinal question difficulty.
type Level int

const (
	LevelEasy   Level = 1
	LevelMedium Level = 2
	LevelHard   Level = 3
)

func (l Level) String() string {
	switch l {
	case LevelEasy:
		return "easy"
	case LevelMedium:
		return "medium"
	case LevelHard:
		return "hard"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Question is one generated viva question.
type Question struct {
	Text           string
	ExpectedAnswer string
	Level          Level
}

// Language is the spoken/evaluation language of a session.
type Language string

const (
	LanguageHindi   Language = "Hindi"
	LanguageEnglish Language = "English"
)

// Code returns the short language code used by the question bank endpoints.
func (l Language) Code() string {
	if l == LanguageEnglish {
		return "EN"
	}
	return "HI"
}

// ParseLanguage accepts names and short codes case-insensitively.
func ParseLanguage(raw string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "hindi", "hi", "hi-in":
		return LanguageHindi, nil
	case "english", "en", "en-us", "en-in":
		return LanguageEnglish, nil
	default:
		return "", fmt.Errorf("unsupported language %q", raw)
	}
}

// Mood is the host avatar expression shown alongside a host message.
type Mood string

const (
	MoodNeutral     Mood = "neutral"
	MoodThinking    Mood = "thinking"
	MoodHappy       Mood = "happy"
	MoodEncouraging Mood = "encouraging"
	MoodListening   Mood = "listening"
)

// Blob is a finalized media artifact handed off by a recorder.
type Blob struct {
	MIMEType string
	Filename string
	Data     []byte
}

// Empty reports whether the blob carries no media bytes.
func (b Blob) Empty() bool {
	return len(b.Data) == 0
}
