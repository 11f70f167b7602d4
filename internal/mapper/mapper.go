package mapper

import (
	"errors"
	"fmt"
	"strings"

	"github.com/verisona-ai/analysis-service/internal/models"
	"github.com/verisona-ai/analysis-service/internal/validator"
)

var (
	ErrNoSession = errors.New("mapping requires a session identifier")
	ErrNoAnswers = errors.New("no answers available for analysis")
)

// ResponseContext is one answer normalized for the Analyzer: raw value plus
// the quality annotation, derived analytics, and the owning question's
// metadata.
type ResponseContext struct {
	QuestionID   uint                `json:"question_id"`
	QuestionText string              `json:"question_text"`
	QuestionType models.QuestionType `json:"question_type"`
	Category     string              `json:"category"`

	Value models.AnswerValue `json:"value"`

	TimeSpentSeconds int `json:"time_spent_seconds"`
	RevisionCount    int `json:"revision_count"`
	QualityScore     int `json:"quality_score"`
	Confidence       int `json:"confidence"`

	Sentiment      string               `json:"sentiment,omitempty"`
	Complexity     validator.Complexity `json:"complexity"`
	WordCount      int                  `json:"word_count"`
	CharacterCount int                  `json:"character_count"`

	Themes                 []string `json:"themes,omitempty"`
	Emotions               []string `json:"emotions,omitempty"`
	AuthenticityIndicators []string `json:"authenticity_indicators,omitempty"`
}

// AnalysisRequest is the immutable, AI-ready payload built from one session.
type AnalysisRequest struct {
	UserID       uint                   `json:"user_id"`
	SessionID    string                 `json:"session_id"`
	AnalysisType models.AnalysisType    `json:"analysis_type"`
	Responses    []ResponseContext      `json:"responses"`
	Profile      UserProfile            `json:"user_profile"`
	Options      models.AnalysisOptions `json:"options"`

	// Advisory hints inferred from the response set.
	FocusAreas []string `json:"focus_areas,omitempty"`
	Urgency    string   `json:"urgency"`
}

// Mapper converts raw session answers into Analyzer requests. Pure: no I/O,
// and it only fails on structurally invalid input.
type Mapper struct {
	responses *validator.ResponseValidator
}

func New(responses *validator.ResponseValidator) *Mapper {
	return &Mapper{responses: responses}
}

// MapSession normalizes a session's answers and combines them with the
// derived user profile into a single request.
func (m *Mapper) MapSession(
	user *models.User,
	sessionID string,
	answers []models.SessionAnswer,
	analysisType models.AnalysisType,
	options models.AnalysisOptions,
) (*AnalysisRequest, error) {
	if sessionID == "" {
		return nil, ErrNoSession
	}
	if len(answers) == 0 {
		return nil, ErrNoAnswers
	}
	if user == nil {
		return nil, errors.New("mapping requires a user profile")
	}

	contexts := make([]ResponseContext, 0, len(answers))
	for _, sa := range answers {
		rc, err := m.mapAnswer(sa)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", sa.Question.ID, err)
		}
		contexts = append(contexts, rc)
	}

	return &AnalysisRequest{
		UserID:       user.ID,
		SessionID:    sessionID,
		AnalysisType: analysisType,
		Responses:    contexts,
		Profile:      MapUserProfile(user),
		Options:      options,
		FocusAreas:   inferFocusAreas(contexts),
		Urgency:      inferUrgency(contexts),
	}, nil
}

func (m *Mapper) mapAnswer(sa models.SessionAnswer) (ResponseContext, error) {
	value := sa.Answer.Value()

	annotation, err := m.responses.Validate(sa.Question.Type, value, sa.Question.Constraints(), sa.Question.IsRequired)
	if err != nil {
		return ResponseContext{}, err
	}

	analytics := m.responses.GenerateAnalytics(value, sa.Answer.TimeSpentSeconds, sa.Answer.RevisionCount)

	category := sa.Question.Category
	if category == "" {
		category = "general"
	}

	return ResponseContext{
		QuestionID:   sa.Question.ID,
		QuestionText: sa.Question.Text,
		QuestionType: sa.Question.Type,
		Category:     category,

		Value: value,

		TimeSpentSeconds: sa.Answer.TimeSpentSeconds,
		RevisionCount:    sa.Answer.RevisionCount,
		QualityScore:     annotation.Score,
		Confidence:       annotation.Metadata.Authenticity,

		Sentiment:      analytics.Sentiment,
		Complexity:     analytics.Complexity,
		WordCount:      analytics.WordCount,
		CharacterCount: analytics.CharacterCount,

		Themes:                 extractThemes(value, category),
		Emotions:               extractEmotions(value),
		AuthenticityIndicators: extractAuthenticityIndicators(annotation, analytics),
	}, nil
}

// Per-category theme vocabularies, matched against free-text answers.
var themeVocabulary = map[string][]string{
	"personality": {"leadership", "creativity", "collaboration", "independence", "empathy"},
	"academic":    {"research", "learning", "discovery", "knowledge", "innovation"},
	"values":      {"justice", "equality", "service", "growth", "authenticity", "integrity"},
	"career":      {"impact", "success", "fulfillment", "challenge", "stability"},
	"social":      {"community", "relationships", "diversity", "inclusion", "connection"},
}

func extractThemes(value models.AnswerValue, category string) []string {
	if value.Kind != models.ValueText {
		return nil
	}
	text := strings.ToLower(value.Text)

	var themes []string
	for _, theme := range themeVocabulary[category] {
		if strings.Contains(text, theme) {
			themes = append(themes, theme)
		}
	}
	return themes
}

var emotionVocabulary = []struct {
	category string
	words    []string
}{
	{"positive", []string{"excited", "happy", "passionate", "enthusiastic", "motivated", "confident"}},
	{"negative", []string{"worried", "anxious", "frustrated", "disappointed", "confused", "overwhelmed"}},
	{"neutral", []string{"curious", "thoughtful", "reflective", "contemplative", "analytical"}},
}

func extractEmotions(value models.AnswerValue) []string {
	if value.Kind != models.ValueText {
		return nil
	}
	text := strings.ToLower(value.Text)

	var emotions []string
	for _, group := range emotionVocabulary {
		for _, word := range group.words {
			if strings.Contains(text, word) {
				emotions = append(emotions, group.category+":"+word)
			}
		}
	}
	return emotions
}

const indicatorThreshold = 80

func extractAuthenticityIndicators(annotation *validator.ResponseValidationResult, analytics validator.ResponseAnalytics) []string {
	var indicators []string
	if annotation.Metadata.Authenticity >= indicatorThreshold {
		indicators = append(indicators, "highly_authentic")
	}
	if annotation.Metadata.Thoughtfulness >= indicatorThreshold {
		indicators = append(indicators, "deeply_thoughtful")
	}
	if annotation.Metadata.Clarity >= indicatorThreshold {
		indicators = append(indicators, "clearly_expressed")
	}
	if analytics.Complexity == validator.ComplexityComplex {
		indicators = append(indicators, "complex_thinking")
	}
	return indicators
}

// inferFocusAreas unions the categories and themes seen across the session,
// preserving first-seen order.
func inferFocusAreas(responses []ResponseContext) []string {
	seen := make(map[string]bool)
	var areas []string

	add := func(area string) {
		if area != "" && !seen[area] {
			seen[area] = true
			areas = append(areas, area)
		}
	}

	for _, rc := range responses {
		add(rc.Category)
		for _, theme := range rc.Themes {
			add(theme)
		}
	}
	return areas
}

// inferUrgency gauges engagement: high when students both lingered and
// revised, medium when only one signal holds.
func inferUrgency(responses []ResponseContext) string {
	if len(responses) == 0 {
		return "low"
	}

	totalTime := 0
	revised := 0
	for _, rc := range responses {
		totalTime += rc.TimeSpentSeconds
		if rc.RevisionCount > 0 {
			revised++
		}
	}
	avgTime := float64(totalTime) / float64(len(responses))
	revisionRate := float64(revised) / float64(len(responses))

	switch {
	case avgTime > 120 && revisionRate > 0.3:
		return "high"
	case avgTime > 60 || revisionRate > 0.1:
		return "medium"
	default:
		return "low"
	}
}
