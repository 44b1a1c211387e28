package schema

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
	// DefaultMaxValueSize bounds a single edited field value.
	DefaultMaxValueSize = 4096
	// EnvMaxValueSize overrides DefaultMaxValueSize.
	EnvMaxValueSize = "ESPALIER_MAX_FIELD_SIZE"
)

var (
	ErrValueTooLarge = errors.New("value exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("value contains invalid UTF-8 sequences")
)

// Sanitize checks a raw field value typed by an editor. Oversized values
// and invalid UTF-8 are rejected; control characters other than newline,
// tab and carriage return are stripped.
func Sanitize(value string) (string, error) {
	if limit := maxValueSize(); len(value) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrValueTooLarge, len(value), limit)
	}
	if !utf8.ValidString(value) {
		return "", ErrInvalidUTF8
	}
	if strings.IndexFunc(value, unsafeControl) < 0 {
		return value, nil
	}
	return strings.Map(func(r rune) rune {
		if unsafeControl(r) {
			return -1
		}
		return r
	}, value), nil
}

func unsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}

func maxValueSize() int {
	if v := os.Getenv(EnvMaxValueSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultMaxValueSize
}
