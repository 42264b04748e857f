// Package lang validates the language hint passed to speech recognition.
package lang

import (
	"fmt"
	"strings"
)

// DefaultLanguage is the recognition language used when none is configured.
const DefaultLanguage = "en"

// whisperLanguages lists the ISO 639-1 codes the whisper-1 model accepts
// as a language hint.
var whisperLanguages = func() map[string]bool {
	codes := strings.Fields(`
		af ar az be bg bs ca cs cy da de el en es et fa fi fr gl he hi hr hu
		hy id is it ja kk kn ko lt lv mi mk mr ms ne nl no pl pt ro ru sk sl
		sr sv sw ta th tl tr uk ur vi zh`)
	m := make(map[string]bool, len(codes))
	for _, c := range codes {
		m[c] = true
	}
	return m
}()

// Normalize lowercases a code and uses a hyphen separator.
// "pt_BR", "PT-BR" and "pt-br" all become "pt-br".
func Normalize(code string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(code), "_", "-"))
}

// BaseCode strips the region from a locale: "pt-BR" -> "pt".
// The transcription endpoint only accepts base codes.
func BaseCode(code string) string {
	base, _, _ := strings.Cut(Normalize(code), "-")
	return base
}

// Validate checks a language code or locale. Empty means auto-detect and is valid.
func Validate(code string) error {
	if code == "" {
		return nil
	}
	if !whisperLanguages[BaseCode(code)] {
		return fmt.Errorf("invalid language code %q (use ISO 639-1 codes like 'en', 'fr', 'pt-BR'): %w",
			code, ErrInvalid)
	}
	return nil
}

// OrDefault returns code, or DefaultLanguage when code is empty.
func OrDefault(code string) string {
	if code == "" {
		return DefaultLanguage
	}
	return code
}
