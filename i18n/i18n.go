// Package i18n holds the user-facing messages in French and English.
package i18n

import "strings"

const DefaultLang = "fr"

var messages = map[string]map[string]string{
	"fr": {
		"required":             "Requis",
		"invalid_email":        "Adresse email invalide",
		"invalid_phone":        "Numéro de téléphone invalide",
		"quote_saved":          "Devis enregistré avec succès",
		"quote_updated":        "Devis mis à jour avec succès",
		"quote_loaded":         "Devis chargé avec succès",
		"quote_deleted":        "Devis supprimé",
		"quotes_cleared":       "Tous les devis ont été supprimés",
		"no_saved_quotes":      "Aucun devis enregistré",
		"new_quote":            "Nouveau devis créé",
		"unsaved_changes":      "Des modifications non enregistrées seront perdues",
		"confirm_clear":        "Confirmez la suppression de tous les devis",
		"quote_not_found":      "Devis introuvable",
		"storage_unavailable":  "Stockage local indisponible",
		"save_failed":          "Erreur lors de l'enregistrement",
		"delete_failed":        "Erreur lors de la suppression",
		"missing_client_title": "Veuillez renseigner le nom du client et le titre",
		"missing_title_addr":   "Veuillez renseigner le titre et l'adresse",
		"text_generated":       "Textes générés avec succès",
		"generation_failed":    "Impossible de générer le texte",
		"pdf_generated":        "PDF généré avec succès",
		"pdf_failed":           "Erreur lors de la génération du PDF",
		"quote_valid":          "Devis valide",
		"quote_invalid":        "Devis invalide",
		"ai_online":            "Service IA disponible",
		"ai_offline":           "Service IA indisponible",
		"invalid_request":      "Requête invalide",
		"unknown_field":        "Champ inconnu",
		"line_index":           "Ligne de prestation introuvable",
		"session_changed":      "Le devis a changé pendant la génération",
		"internal_error":       "Erreur interne",
	},
	"en": {
		"required":             "Required",
		"invalid_email":        "Invalid email address",
		"invalid_phone":        "Invalid phone number",
		"quote_saved":          "Quote saved",
		"quote_updated":        "Quote updated",
		"quote_loaded":         "Quote loaded",
		"quote_deleted":        "Quote deleted",
		"quotes_cleared":       "All quotes deleted",
		"no_saved_quotes":      "No saved quotes",
		"new_quote":            "New quote created",
		"unsaved_changes":      "Unsaved changes will be lost",
		"confirm_clear":        "Confirm deleting every quote",
		"quote_not_found":      "Quote not found",
		"storage_unavailable":  "Local storage unavailable",
		"save_failed":          "Saving failed",
		"delete_failed":        "Deleting failed",
		"missing_client_title": "Please fill in the client name and the title",
		"missing_title_addr":   "Please fill in the title and the address",
		"text_generated":       "Text generated",
		"generation_failed":    "Text generation failed",
		"pdf_generated":        "PDF generated",
		"pdf_failed":           "PDF generation failed",
		"quote_valid":          "Quote is valid",
		"quote_invalid":        "Quote is invalid",
		"ai_online":            "AI service available",
		"ai_offline":           "AI service unavailable",
		"invalid_request":      "Invalid request",
		"unknown_field":        "Unknown field",
		"line_index":           "No such prestation line",
		"session_changed":      "The quote changed during generation",
		"internal_error":       "Internal error",
	},
}

// T returns the message for code in lang, falling back to French and then to
// the code itself.
func T(lang, code string) string {
	if m, ok := messages[lang]; ok {
		if s, ok := m[code]; ok {
			return s
		}
	}
	if s, ok := messages[DefaultLang][code]; ok {
		return s
	}
	return code
}

// DetectLanguage picks a supported language from an Accept-Language header.
// Only the first tag is considered.
func DetectLanguage(header string) string {
	first := strings.TrimSpace(strings.SplitN(header, ",", 2)[0])
	first = strings.SplitN(first, ";", 2)[0]
	tag := strings.ToLower(strings.SplitN(first, "-", 2)[0])
	if _, ok := messages[tag]; ok {
		return tag
	}
	return DefaultLang
}

// Supported reports whether lang has its own message table.
func Supported(lang string) bool {
	_, ok := messages[lang]
	return ok
}

// Translate maps every violation code to its message.
func Translate(lang string, violations map[string]string) map[string]string {
	out := make(map[string]string, len(violations))
	for field, code := range violations {
		out[field] = T(lang, code)
	}
	return out
}
