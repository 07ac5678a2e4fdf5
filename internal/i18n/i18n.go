// Package i18n resolves caller-facing strings and language names.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Message keys.
const (
	UserIDMissing    = "userIdMissing"
	NoUserFound      = "noUserFound"
	ScanLimitReached = "scanLimitReached"
	InternalFailure  = "internalFailure"
	MessageRequired  = "messageRequired"
	TooManyFiles     = "tooManyFiles"
	HistoryTooLong   = "historyTooLong"
	NotFound         = "conversationNotFound"
	Conflict         = "conversationConflict"
	MediaFailure     = "mediaFailure"
)

// DefaultLanguage is used when a caller language has no catalog entry.
const DefaultLanguage = "en"

const fallback = DefaultLanguage

var catalog = map[string]map[string]string{
	"en": {
		UserIDMissing:    "User ID is missing",
		NoUserFound:      "No user found",
		ScanLimitReached: "You have reached the daily scan limit. Please try again tomorrow.",
		InternalFailure:  "Failed to process the message. Please try again.",
		MessageRequired:  "User message is required",
		TooManyFiles:     "Maximum 10 files allowed per message",
		HistoryTooLong:   "Conversation history is too long",
		NotFound:         "Conversation not found",
		Conflict:         "Conversation was updated by another request. Please retry.",
		MediaFailure:     "Failed to load the attached files. Please try again.",
	},
	"es": {
		UserIDMissing:    "Falta el ID de usuario",
		NoUserFound:      "No se encontró el usuario",
		ScanLimitReached: "Has alcanzado el límite diario de escaneos. Inténtalo de nuevo mañana.",
		InternalFailure:  "No se pudo procesar el mensaje. Inténtalo de nuevo.",
	},
	"fr": {
		UserIDMissing:    "L'identifiant utilisateur est manquant",
		NoUserFound:      "Aucun utilisateur trouvé",
		ScanLimitReached: "Vous avez atteint la limite quotidienne d'analyses. Réessayez demain.",
		InternalFailure:  "Impossible de traiter le message. Veuillez réessayer.",
	},
	"de": {
		UserIDMissing:    "Benutzer-ID fehlt",
		NoUserFound:      "Kein Benutzer gefunden",
		ScanLimitReached: "Du hast das tägliche Scan-Limit erreicht. Bitte versuche es morgen erneut.",
		InternalFailure:  "Die Nachricht konnte nicht verarbeitet werden. Bitte versuche es erneut.",
	},
	"ro": {
		UserIDMissing:    "ID-ul utilizatorului lipsește",
		NoUserFound:      "Utilizatorul nu a fost găsit",
		ScanLimitReached: "Ai atins limita zilnică de scanări. Încearcă din nou mâine.",
		InternalFailure:  "Mesajul nu a putut fi procesat. Încearcă din nou.",
	},
	"it": {
		UserIDMissing:    "ID utente mancante",
		NoUserFound:      "Nessun utente trovato",
		ScanLimitReached: "Hai raggiunto il limite giornaliero di scansioni. Riprova domani.",
		InternalFailure:  "Impossibile elaborare il messaggio. Riprova.",
	},
	"pt": {
		UserIDMissing:    "ID do usuário ausente",
		NoUserFound:      "Nenhum usuário encontrado",
		ScanLimitReached: "Você atingiu o limite diário de exames. Tente novamente amanhã.",
		InternalFailure:  "Não foi possível processar a mensagem. Tente novamente.",
	},
}

// T returns the string for key in lang, falling back to English.
func T(lang, key string) string {
	if table, ok := catalog[base(lang)]; ok {
		if s, ok := table[key]; ok {
			return s
		}
	}
	return catalog[fallback][key]
}

// LanguageName returns the English name of a BCP 47 code, or "" when the
// code is empty or not a known language.
func LanguageName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	return display.English.Languages().Name(tag)
}

func base(lang string) string {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return fallback
	}
	b, _ := tag.Base()
	return b.String()
}
