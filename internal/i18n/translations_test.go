package i18n

import "testing"

func TestGetFallsBackToBaseLanguage(t *testing.T) {
	got := Get("pt-BR")
	if got.Error.Prefix != translations["pt"].Error.Prefix {
		t.Errorf("expected pt-BR to resolve to pt, got %q", got.Error.Prefix)
	}
}

func TestGetUnknownUsesDefault(t *testing.T) {
	got := Get("zz")
	if got.Error.Prefix != translations[DefaultLanguage].Error.Prefix {
		t.Errorf("expected default language table, got %q", got.Error.Prefix)
	}
}

func TestSupported(t *testing.T) {
	for _, lang := range []string{"en", "es", "fr", "pt", "en-US"} {
		if !Supported(lang) {
			t.Errorf("expected %q to be supported", lang)
		}
	}
	if Supported("zz") {
		t.Error("expected zz to be unsupported")
	}
}

func TestBaseLang(t *testing.T) {
	if got := BaseLang("fr-CA"); got != "fr" {
		t.Errorf("expected fr, got %q", got)
	}
	if got := BaseLang(""); got != DefaultLanguage {
		t.Errorf("expected default, got %q", got)
	}
}
