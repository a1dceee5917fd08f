package util

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxFileNameRunes caps stored and downloaded file names.
const MaxFileNameRunes = 120

var errInvalidFileName = errors.New("invalid file name")

// SanitizeFileName removes path separators and control characters, rejects
// traversal patterns, and shortens long names while keeping the extension.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errInvalidFileName
	}
	s := strings.TrimSpace(name)
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case r == '"':
			return '\''
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
	if s == "" {
		return "", errInvalidFileName
	}
	if utf8.RuneCountInString(s) > MaxFileNameRunes {
		ext := filepath.Ext(s)
		stem := []rune(strings.TrimSuffix(s, ext))
		keep := MaxFileNameRunes - utf8.RuneCountInString(ext)
		if keep < 1 {
			return "", errInvalidFileName
		}
		s = string(stem[:keep]) + ext
	}
	return s, nil
}
