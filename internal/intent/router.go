// Package intent maps a message-type tag to the instructions sent to the AI provider.
package intent

import (
	"strings"
)

type Type string

const (
	TypeWant           Type = "je_veux"
	TypeResearch       Type = "je_recherche"
	TypeReliableSource Type = "sources_fiables"
	TypeActivities     Type = "activites"

	DefaultType = TypeWant
)

// ReliableSourcesTrustScore is attached to every reliable-sources reply.
const ReliableSourcesTrustScore = 0.95

// DownloadableThreshold is the response length above which a reply is offered as a download.
const DownloadableThreshold = 500

const exportInstruction = "\n\nStructure ta réponse avec un titre, des sections courtes et des paragraphes " +
	"séparés par une ligne vide afin qu'elle puisse être exportée en document."

const audiencePlaceholder = "{audience}"

var promptTemplates = map[Type]string{
	TypeWant: "Tu es un assistant pédagogique spécialisé pour les {audience}. Réponds de manière claire et " +
		"éducative aux demandes d'information. Utilise un langage accessible et adapté aux {audience}.",
	TypeResearch: "Tu es un assistant de recherche éducative. Aide les {audience} à comprendre et explorer des " +
		"sujets scolaires. Propose des pistes de recherche et des angles d'approche pédagogiques.",
	TypeReliableSource: "Tu es un expert en évaluation de sources académiques. Guide les {audience} vers des " +
		"sources fiables (sites gouvernementaux, .edu, sites académiques) et explique comment évaluer " +
		"la crédibilité d'une source.",
	TypeActivities: "Tu es un créateur d'activités pédagogiques pour les {audience}. Propose des exercices, " +
		"projets et activités engageantes adaptées au programme scolaire.",
}

var documentKeywords = []string{
	"document",
	"pdf",
	"word",
	"docx",
	"powerpoint",
	"pptx",
	"présentation",
	"diaporama",
	"excel",
	"tableau",
	"fiche",
	"rapport",
	"résumé",
	"exporter",
	"télécharger",
}

// Route is the outcome of resolving a message type.
type Route struct {
	Type         Type
	SystemPrompt string
	Model        string
}

type Router struct {
	audience     string
	defaultModel string
	models       map[string]string
}

// NewRouter builds a router whose prompts address audience. models overrides defaultModel per tag.
func NewRouter(audience, defaultModel string, models map[string]string) *Router {
	return &Router{
		audience:     audience,
		defaultModel: defaultModel,
		models:       models,
	}
}

// Parse normalises a caller tag, falling back to DefaultType for unknown or empty values.
func Parse(messageType string) Type {
	t := Type(strings.ToLower(strings.TrimSpace(messageType)))
	if _, ok := promptTemplates[t]; ok {
		return t
	}
	return DefaultType
}

func (r *Router) Resolve(messageType string) Route {
	t := Parse(messageType)

	prompt := strings.ReplaceAll(promptTemplates[t], audiencePlaceholder, r.audience)

	model := r.defaultModel
	if m, ok := r.models[string(t)]; ok && m != "" {
		model = m
	}

	return Route{
		Type:         t,
		SystemPrompt: prompt,
		Model:        model,
	}
}

// WantsDocument reports whether the message asks for something exportable.
func WantsDocument(message string) bool {
	lower := strings.ToLower(message)
	for _, keyword := range documentKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// UserPrompt returns the text sent as the user turn, nudged toward an exportable layout when asked.
func UserPrompt(message string) string {
	if WantsDocument(message) {
		return message + exportInstruction
	}
	return message
}

func Downloadable(response string) bool {
	return len([]rune(response)) > DownloadableThreshold
}

// TrustScore is the fixed score policy applied to replies of type t.
func TrustScore(t Type) *float64 {
	if t != TypeReliableSource {
		return nil
	}
	score := ReliableSourcesTrustScore
	return &score
}
