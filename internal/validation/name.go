package validation

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const maxNameRunes = 100

var (
	ErrNameRequired = errors.New("name is required")
	ErrNameTooLong  = errors.New("name is too long (max 100 characters)")
)

func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return ErrNameRequired
	case utf8.RuneCountInString(name) > maxNameRunes:
		return ErrNameTooLong
	}
	return nil
}
