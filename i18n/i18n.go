// Package i18n provides internationalization support for langsync itself.
//
// It wraps the gotext library behind simple T() and N() helpers for
// langsync's own user-facing strings. Translations are embedded in the
// binary and loaded once at startup via Init().
package i18n

import (
	"embed"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

// locales embeds the translation catalogs.
// Directory structure: locales/{lang}/LC_MESSAGES/langsync.po
//
//go:embed all:locales
var locales embed.FS

// domain is the gettext domain name for langsync.
const domain = "langsync"

var locale *gotext.Locale

// Init initializes the i18n system. If lang is empty, the language is
// detected from LANGUAGE, LC_ALL, LC_MESSAGES, LANG (in that order,
// matching GNU gettext behavior). Call once at program startup.
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage()
	}

	locale = gotext.NewLocaleFSWithPath(lang, locales, "locales")
	locale.AddDomain(domain)
	locale.SetDomain(domain)
}

// T translates a string, returning the original unchanged when no
// translation is available.
func T(msgid string) string {
	if locale == nil {
		return msgid
	}
	return locale.Get(msgid)
}

// N translates a string with plural forms.
func N(singular, plural string, n int) string {
	if locale == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return locale.GetN(singular, plural, n)
}

// detectLanguage follows the GNU gettext environment precedence.
func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		if idx := strings.IndexByte(val, '.'); idx >= 0 {
			val = val[:idx]
		}
		if val == "C" || val == "POSIX" || val == "" {
			continue
		}
		return val
	}
	return "en"
}
