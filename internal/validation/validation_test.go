package validation

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xurify/flags.games-server/internal/apperrors"
)

func TestUsername(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "simple", input: "Alice", want: "Alice"},
		{name: "trims whitespace", input: "  Bob  ", want: "Bob"},
		{name: "collapses inner whitespace", input: "Jean   Luc", want: "Jean Luc"},
		{name: "strips html", input: "Eve<script>x</script>", want: "Evex"},
		{name: "unicode letters", input: "Søren", want: "Søren"},
		{name: "multibyte at max length", input: strings.Repeat("ü", 30), want: strings.Repeat("ü", 30)},
		{name: "multibyte too long", input: strings.Repeat("ü", 31), wantErr: true},
		{name: "allowed punctuation", input: "player_one.2-a", want: "player_one.2-a"},
		{name: "too short", input: "a", wantErr: true},
		{name: "too long", input: strings.Repeat("a", 31), wantErr: true},
		{name: "empty after strip", input: "<b></b>", wantErr: true},
		{name: "invalid characters", input: "nope!", wantErr: true},
		{name: "reserved word", input: "the_admin", wantErr: true},
		{name: "reserved word case insensitive", input: "SyStEm42", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Username(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				var appErr *apperrors.AppError
				require.True(t, errors.As(err, &appErr))
				assert.Equal(t, apperrors.CodeValidation, appErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInviteCode(t *testing.T) {
	code, err := InviteCode("ab12cd")
	require.NoError(t, err)
	assert.Equal(t, "AB12CD", code)

	code, err = InviteCode("  XYZ789 ")
	require.NoError(t, err)
	assert.Equal(t, "XYZ789", code)

	for _, bad := range []string{"", "ABC12", "ABC1234", "ABC-12", "ありがとう"} {
		_, err := InviteCode(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestAnswer(t *testing.T) {
	got, err := Answer(`  <b>Fran"ce</b>  `)
	require.NoError(t, err)
	assert.Equal(t, "bFrance/b", got)

	got, err = Answer("United   States")
	require.NoError(t, err)
	assert.Equal(t, "United States", got)

	long, err := Answer(strings.Repeat("x", 200))
	require.NoError(t, err)
	assert.Len(t, long, MaxAnswerLength)

	// Truncation lands on a rune boundary.
	wide, err := Answer(strings.Repeat("ü", 150))
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(wide))
	assert.Equal(t, MaxAnswerLength, utf8.RuneCountInString(wide))

	_, err = Answer("<>&\"'")
	assert.Error(t, err)
}

func TestSettings(t *testing.T) {
	str := func(s string) *string { return &s }
	num := func(n int) *int { return &n }

	assert.NoError(t, Settings(SettingsUpdate{}))
	assert.NoError(t, Settings(SettingsUpdate{
		Difficulty:      str("hard"),
		MaxRoomSize:     num(4),
		TimePerQuestion: num(20),
		GameMode:        str("speed"),
	}))

	assert.Error(t, Settings(SettingsUpdate{Difficulty: str("impossible")}))
	assert.Error(t, Settings(SettingsUpdate{TimePerQuestion: num(25)}))
	assert.Error(t, Settings(SettingsUpdate{MaxRoomSize: num(6)}))
	assert.Error(t, Settings(SettingsUpdate{MaxRoomSize: num(1)}))
	assert.Error(t, Settings(SettingsUpdate{GameMode: str("battle")}))
}
