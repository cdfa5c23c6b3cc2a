// Package i18n provides the UI strings in the supported languages.
package i18n

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultLanguage is used when a session has no valid language set.
const DefaultLanguage = "en"

//go:embed locales.yaml
var localesYAML []byte

var catalog = mustLoad(localesYAML)

// Languages maps supported language codes to their display names.
var Languages = map[string]string{
	"en": "🇬🇧 English",
	"ro": "🇷🇴 Română",
	"it": "🇮🇹 Italiano",
}

func mustLoad(data []byte) map[string]map[string]string {
	var c map[string]map[string]string
	if err := yaml.Unmarshal(data, &c); err != nil {
		panic(fmt.Sprintf("i18n: invalid locales: %v", err))
	}
	return c
}

// Supported reports whether lang is a known language code.
func Supported(lang string) bool {
	_, ok := Languages[lang]
	return ok
}

// Codes returns the supported language codes in a stable order.
func Codes() []string {
	codes := make([]string, 0, len(Languages))
	for c := range Languages {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// Normalize returns lang if supported, the default language otherwise.
func Normalize(lang string) string {
	if Supported(lang) {
		return lang
	}
	return DefaultLanguage
}

// T returns the text of key in lang, falling back to English and then to
// the key itself. Args are applied with fmt.Sprintf.
func T(lang, key string, args ...any) string {
	text, ok := catalog[Normalize(lang)][key]
	if !ok {
		text, ok = catalog[DefaultLanguage][key]
	}
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(text, args...)
	}
	return text
}

// Translator binds T to one language, for use in templates.
type Translator struct {
	Lang string
}

func (t Translator) T(key string, args ...any) string {
	return T(t.Lang, key, args...)
}
