package langgate

import (
	"errors"
	"strings"

	"github.com/abadojack/whatlanggo"
)

// ErrUndetectable is returned when no language can be identified.
var ErrUndetectable = errors.New("language not detectable")

// WhatLang detects languages with whatlanggo and reports ISO-639-1 codes.
type WhatLang struct{}

// Detect returns the ISO-639-1 code of text.
func (WhatLang) Detect(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrUndetectable
	}
	info := whatlanggo.Detect(text)
	code := info.Lang.Iso6391()
	if code == "" {
		return "", ErrUndetectable
	}
	return code, nil
}
