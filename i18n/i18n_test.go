package i18n

import "testing"

func TestTPassthroughBeforeInit(t *testing.T) {
	locale = nil
	if got := T("untranslated message"); got != "untranslated message" {
		t.Fatalf("T = %q, want passthrough", got)
	}
	if got := N("one", "many", 1); got != "one" {
		t.Fatalf("N(1) = %q, want singular", got)
	}
	if got := N("one", "many", 5); got != "many" {
		t.Fatalf("N(5) = %q, want plural", got)
	}
}

func TestInitLoadsEmbeddedFrench(t *testing.T) {
	Init("fr")
	defer func() { locale = nil }()

	got := T("Nothing to translate")
	if got != "Rien à traduire" {
		t.Fatalf("T = %q, want French translation", got)
	}
}

func TestInitUnknownLanguageFallsBack(t *testing.T) {
	Init("xx")
	defer func() { locale = nil }()

	if got := T("Nothing to translate"); got != "Nothing to translate" {
		t.Fatalf("T = %q, want passthrough for unknown language", got)
	}
}

func TestDetectLanguageStripsEncoding(t *testing.T) {
	t.Setenv("LANGUAGE", "")
	t.Setenv("LC_ALL", "fr_FR.UTF-8")
	if got := detectLanguage(); got != "fr_FR" {
		t.Fatalf("detectLanguage = %q, want fr_FR", got)
	}
}
