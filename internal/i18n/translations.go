// Package i18n holds the static translation table: language code to the
// strings the API actually serves. Pure data.
package i18n

import "strings"

// DefaultLanguage matches the original product default.
const DefaultLanguage = "pt"

type ErrorStrings struct {
	Title       string `json:"title"`
	Prefix      string `json:"prefix"`
	ImagePrefix string `json:"imagePrefix"`
}

type AuthStrings struct {
	InvalidCode string `json:"invalidCode"`
	CodeSent    string `json:"codeSent"`
}

type Translations struct {
	Error ErrorStrings `json:"error"`
	Auth  AuthStrings  `json:"auth"`
}

var translations = map[string]Translations{
	"en": {
		Error: ErrorStrings{
			Title:       "An Error Occurred",
			Prefix:      "Failed to generate video.",
			ImagePrefix: "Failed to generate images.",
		},
		Auth: AuthStrings{
			InvalidCode: "Invalid code. Please try again.",
			CodeSent:    "We sent a 6-digit verification code to your email.",
		},
	},
	"es": {
		Error: ErrorStrings{
			Title:       "Ocurrió un Error",
			Prefix:      "Error al generar el video.",
			ImagePrefix: "Error al generar las imágenes.",
		},
		Auth: AuthStrings{
			InvalidCode: "Código no válido. Inténtalo de nuevo.",
			CodeSent:    "Enviamos un código de verificación de 6 dígitos a tu correo.",
		},
	},
	"fr": {
		Error: ErrorStrings{
			Title:       "Une erreur est survenue",
			Prefix:      "Échec de la génération de la vidéo.",
			ImagePrefix: "Échec de la génération des images.",
		},
		Auth: AuthStrings{
			InvalidCode: "Code invalide. Veuillez réessayer.",
			CodeSent:    "Nous avons envoyé un code de vérification à 6 chiffres à votre adresse e-mail.",
		},
	},
	"pt": {
		Error: ErrorStrings{
			Title:       "Ocorreu um Erro",
			Prefix:      "Falha ao gerar o vídeo.",
			ImagePrefix: "Falha ao gerar as imagens.",
		},
		Auth: AuthStrings{
			InvalidCode: "Código inválido. Tente novamente.",
			CodeSent:    "Enviamos um código de verificação de 6 dígitos para o seu e-mail.",
		},
	},
}

// LoadingMessages rotate on the video surface while an operation is pending.
var LoadingMessages = []string{
	"Contacting the digital director...",
	"Script is being written by the AI...",
	"Casting virtual actors...",
	"Setting up the digital cameras...",
	"Rendering scene 1...",
	"This can take a few minutes, please wait.",
	"Adding special effects and VFX...",
	"Composing an original soundtrack...",
	"Finalizing color grading...",
	"Polishing the final cut...",
	"Almost there, the premiere is about to start!",
}

// Get resolves a language tag, falling back to the base language and then
// to the default ("pt-BR" -> "pt" -> default).
func Get(lang string) Translations {
	if t, ok := translations[lang]; ok {
		return t
	}
	if base, _, found := strings.Cut(lang, "-"); found {
		if t, ok := translations[base]; ok {
			return t
		}
	}
	return translations[DefaultLanguage]
}

// Supported reports whether lang resolves to a translation without falling
// back to the default.
func Supported(lang string) bool {
	if _, ok := translations[lang]; ok {
		return true
	}
	base, _, _ := strings.Cut(lang, "-")
	_, ok := translations[base]
	return ok
}

// BaseLang trims a region suffix for the speech engine's language tag.
func BaseLang(lang string) string {
	base, _, _ := strings.Cut(lang, "-")
	if base == "" {
		return DefaultLanguage
	}
	return base
}
