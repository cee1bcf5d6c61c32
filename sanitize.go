package webflow

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxInputSize caps a single console line at 4KB.
	DefaultMaxInputSize = 4096
	// EnvMaxInputSize overrides DefaultMaxInputSize.
	EnvMaxInputSize = "WEBFLOW_MAX_INPUT_SIZE"
)

// MaxEventIDLength bounds the event ids accepted by Resume.
const MaxEventIDLength = 128

// EventTokenPrefix marks an event token the way form buttons name it: _eventId_next.
const EventTokenPrefix = "_eventId_"

var (
	ErrInputTooLarge  = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8    = errors.New("input contains invalid UTF-8 sequences")
	ErrInvalidEventID = errors.New("invalid event id")
)

// SanitizeInput checks one console line. Oversized or malformed lines are
// rejected rather than truncated; control runes other than newline, tab and
// carriage return are dropped.
func SanitizeInput(line string) (string, error) {
	if limit := maxInputSize(); len(line) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(line), limit)
	}
	if !utf8.ValidString(line) {
		return "", ErrInvalidUTF8
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			return -1
		}
		return r
	}, line), nil
}

// EventToken turns a typed token into an event id. "_eventId_next" and
// "_eventId=next" both name the event "next"; anything else is the id itself.
func EventToken(token string) string {
	if id, ok := strings.CutPrefix(token, EventTokenPrefix); ok {
		return id
	}
	if id, ok := strings.CutPrefix(token, "_eventId="); ok {
		return id
	}
	return token
}

// ValidateEventID rejects ids no transition could match by name: empty ids,
// ids longer than MaxEventIDLength and ids holding spaces, '=' or control runes.
func ValidateEventID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty", ErrInvalidEventID)
	case len(id) > MaxEventIDLength:
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidEventID, len(id), MaxEventIDLength)
	}
	for _, r := range id {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == '=' {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidEventID, id, r)
		}
	}
	return nil
}

func maxInputSize() int {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxInputSize
}
