package models

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// NewID builds a session-local identifier of the form
// {kind}-{slug}-{base36 millis}-{random suffix}.
//
// IDs are not stable across re-parses of the same content: loading a
// file twice yields different IDs. They exist only so the editing
// client can address entities within one loaded workspace.
func NewID(kind, title string) string {
	var b strings.Builder
	b.WriteString(kind)
	b.WriteByte('-')
	b.WriteString(slugify(title))
	b.WriteByte('-')
	b.WriteString(strconv.FormatInt(time.Now().UnixMilli(), 36))
	b.WriteByte('-')
	b.WriteString(randomSuffix())
	return b.String()
}

// slugify lowercases the title, drops everything that is not a letter,
// digit, or space, collapses spaces to dashes, and caps the result at
// 30 bytes.
func slugify(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case r == ' ' && !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
		if b.Len() >= 30 {
			break
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func randomSuffix() string {
	id := uuid.NewString()
	return strings.ReplaceAll(id, "-", "")[:6]
}
