package validation

import (
	"fmt"
	"regexp"
	"unicode"
	"unicode/utf8"
)

// ClientIDPattern определяет допустимый формат id клиента и пользователя
// Латинские буквы, цифры, "-" и "_", длина 1-64 символа
var ClientIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// ColorPattern - цвет курсора в формате #RRGGBB
var ColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

const (
	// MaxClientIDLen максимальная длина id клиента
	MaxClientIDLen = 64
	// MaxDisplayNameLen максимальная длина отображаемого имени в символах
	MaxDisplayNameLen = 64
)

// ValidateClientID проверяет id клиента (соединения) или пользователя.
// Id становится частью ключа записи присутствия.
func ValidateClientID(id string) error {
	if id == "" {
		return fmt.Errorf("client id cannot be empty")
	}

	if len(id) > MaxClientIDLen {
		return fmt.Errorf("client id must not exceed %d characters", MaxClientIDLen)
	}

	if !ClientIDPattern.MatchString(id) {
		return fmt.Errorf("client id can only contain letters (a-z, A-Z), numbers (0-9), dashes and underscores")
	}

	return nil
}

// ValidateDisplayName проверяет отображаемое имя пользователя.
// Пустое имя допустимо: вместо него используется имя по умолчанию.
func ValidateDisplayName(name string) error {
	if !utf8.ValidString(name) {
		return fmt.Errorf("display name must be valid UTF-8")
	}

	if utf8.RuneCountInString(name) > MaxDisplayNameLen {
		return fmt.Errorf("display name must not exceed %d characters", MaxDisplayNameLen)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("display name cannot contain control characters")
		}
	}

	return nil
}

// ValidateColor проверяет цвет в формате #RRGGBB. Пустой цвет допустим.
func ValidateColor(color string) error {
	if color == "" {
		return nil
	}

	if !ColorPattern.MatchString(color) {
		return fmt.Errorf("color must be in #RRGGBB format")
	}

	return nil
}
