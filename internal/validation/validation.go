// Package validation performs structural validation and sanitization of
// client-supplied values. Policy checks (host-only, phase constraints)
// belong to the handlers, not here.
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Xurify/flags.games-server/internal/apperrors"
)

const (
	MinUsernameLength = 2
	MaxUsernameLength = 30
	InviteCodeLength  = 6
	MaxAnswerLength   = 100
)

var (
	usernamePattern   = regexp.MustCompile(`^[\p{L}\p{N} \-_.]+$`)
	inviteCodePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)
	htmlTagPattern    = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// reservedUsernames cannot appear as a substring of a username.
var reservedUsernames = []string{"admin", "moderator", "bot", "system", "null", "undefined"}

// Difficulty, time and mode enumerations accepted in room settings.
var (
	ValidDifficulties     = []string{"easy", "medium", "hard", "expert"}
	ValidTimesPerQuestion = []int{10, 15, 20, 30}
	ValidGameModes        = []string{"classic", "speed", "elimination"}
)

// Username validates and sanitizes a username. It returns the cleaned value
// or a VALIDATION_ERROR.
func Username(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	name = htmlTagPattern.ReplaceAllString(name, "")
	name = whitespacePattern.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)

	if n := utf8.RuneCountInString(name); n < MinUsernameLength || n > MaxUsernameLength {
		return "", apperrors.Newf(apperrors.CodeValidation,
			"username must be between %d and %d characters", MinUsernameLength, MaxUsernameLength)
	}
	if !usernamePattern.MatchString(name) {
		return "", apperrors.New(apperrors.CodeValidation, "username contains invalid characters")
	}
	lower := strings.ToLower(name)
	for _, reserved := range reservedUsernames {
		if strings.Contains(lower, reserved) {
			return "", apperrors.New(apperrors.CodeValidation, "username contains a reserved word")
		}
	}
	return name, nil
}

// InviteCode validates a 6-character invite code, folding to uppercase first.
func InviteCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if !inviteCodePattern.MatchString(code) {
		return "", apperrors.New(apperrors.CodeValidation, "invite code must be 6 uppercase alphanumeric characters")
	}
	return code, nil
}

// Answer sanitizes an answer submission: strips dangerous characters,
// collapses whitespace and truncates to the maximum length.
func Answer(raw string) (string, error) {
	answer := strings.TrimSpace(raw)
	answer = strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '\'', '"', '&':
			return -1
		}
		return r
	}, answer)
	answer = whitespacePattern.ReplaceAllString(answer, " ")
	answer = strings.TrimSpace(answer)

	if answer == "" {
		return "", apperrors.New(apperrors.CodeValidation, "answer must not be empty")
	}
	if utf8.RuneCountInString(answer) > MaxAnswerLength {
		answer = string([]rune(answer)[:MaxAnswerLength])
	}
	return answer, nil
}

// SettingsUpdate is a partial room-settings update; nil fields are untouched.
type SettingsUpdate struct {
	Difficulty      *string `json:"difficulty,omitempty"`
	MaxRoomSize     *int    `json:"maxRoomSize,omitempty"`
	TimePerQuestion *int    `json:"timePerQuestion,omitempty"`
	GameMode        *string `json:"gameMode,omitempty"`
}

// Settings validates a partial settings update.
func Settings(update SettingsUpdate) error {
	if update.Difficulty != nil && !containsString(ValidDifficulties, *update.Difficulty) {
		return apperrors.Newf(apperrors.CodeValidation, "invalid difficulty %q", *update.Difficulty)
	}
	if update.TimePerQuestion != nil && !containsInt(ValidTimesPerQuestion, *update.TimePerQuestion) {
		return apperrors.Newf(apperrors.CodeValidation, "invalid timePerQuestion %d", *update.TimePerQuestion)
	}
	if update.MaxRoomSize != nil && (*update.MaxRoomSize < 2 || *update.MaxRoomSize > 5) {
		return apperrors.Newf(apperrors.CodeValidation, "maxRoomSize must be between 2 and 5")
	}
	if update.GameMode != nil && !containsString(ValidGameModes, *update.GameMode) {
		return apperrors.Newf(apperrors.CodeValidation, "invalid gameMode %q", *update.GameMode)
	}
	return nil
}

func containsString(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
