package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/verisona-ai/analysis-service/internal/models"
)

// Default length bounds applied when the question carries no overrides.
const (
	defaultTextMaxLength     = 500
	defaultTextareaMinLength = 10
	defaultTextareaMaxLength = 2000
	defaultScaleMin          = 1
	defaultScaleMax          = 10
)

// QualityMetadata holds the four quality sub-scores (0-100).
type QualityMetadata struct {
	Completeness   int `json:"completeness"`
	Thoughtfulness int `json:"thoughtfulness"`
	Authenticity   int `json:"authenticity"`
	Clarity        int `json:"clarity"`
}

// ResponseValidationResult is the quality/authenticity annotation for one
// answer. It is a pure function of the answer and question metadata.
type ResponseValidationResult struct {
	IsValid     bool            `json:"is_valid"`
	Score       int             `json:"score"`
	Errors      []string        `json:"errors"`
	Warnings    []string        `json:"warnings"`
	Suggestions []string        `json:"suggestions"`
	Metadata    QualityMetadata `json:"metadata"`
}

type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// ResponseAnalytics carries derived metrics attached to an answer at
// mapping time.
type ResponseAnalytics struct {
	ResponseTime   int        `json:"response_time"`
	RevisionCount  int        `json:"revision_count"`
	CharacterCount int        `json:"character_count"`
	WordCount      int        `json:"word_count"`
	Sentiment      string     `json:"sentiment,omitempty"`
	Complexity     Complexity `json:"complexity"`
}

// ResponseValidator scores a single raw answer against its question's type
// and constraints. Side-effect free.
type ResponseValidator struct{}

func NewResponseValidator() *ResponseValidator {
	return &ResponseValidator{}
}

var genericPhrases = []string{"i don't know", "i dont know", "not sure", "maybe", "i guess"}

// Validate checks one answer. Structural problems land in Errors and clear
// IsValid; quality findings land in Warnings/Suggestions and only adjust the
// score. Malformed payloads (wrong variant for the declared question type)
// are reported as validation errors, never as a returned error.
func (v *ResponseValidator) Validate(
	questionType models.QuestionType,
	value models.AnswerValue,
	constraints models.QuestionConstraints,
	isRequired bool,
) (*ResponseValidationResult, error) {
	result := &ResponseValidationResult{
		IsValid: true,
		Score:   100,
		Metadata: QualityMetadata{
			Completeness:   100,
			Thoughtfulness: 100,
			Authenticity:   100,
			Clarity:        100,
		},
	}

	if value.IsEmpty() {
		if isRequired {
			result.Errors = append(result.Errors, "This question is required")
			result.IsValid = false
			result.Score = 0
		}
		// Optional question with no response is valid as-is.
		return result, nil
	}

	structuralErrors, err := v.validateStructure(questionType, value, constraints)
	if err != nil {
		return nil, err
	}
	if len(structuralErrors) > 0 {
		result.Errors = append(result.Errors, structuralErrors...)
		result.IsValid = false
		result.Score = maxInt(0, result.Score-30)
	}

	// Quality assessment runs independently of structural validity.
	switch questionType {
	case models.QuestionText, models.QuestionTextarea:
		if value.Kind == models.ValueText {
			v.assessTextQuality(value.Text, result)
		}
	case models.QuestionScale:
		if value.Kind == models.ValueNumber {
			v.assessScaleQuality(value.Number, constraints, result)
		}
	case models.QuestionRanking:
		if items, ok := value.StringList(); ok {
			v.assessRankingQuality(items, result)
		}
	}

	result.Score = clampScore(result.Score)
	return result, nil
}

func (v *ResponseValidator) validateStructure(
	questionType models.QuestionType,
	value models.AnswerValue,
	constraints models.QuestionConstraints,
) ([]string, error) {
	switch questionType {
	case models.QuestionMultipleChoice:
		return v.validateChoice(value, constraints), nil
	case models.QuestionText:
		return v.validateText(value, constraints, 1, defaultTextMaxLength), nil
	case models.QuestionTextarea:
		return v.validateText(value, constraints, defaultTextareaMinLength, defaultTextareaMaxLength), nil
	case models.QuestionScale:
		return v.validateScale(value, constraints), nil
	case models.QuestionBoolean:
		if value.Kind != models.ValueBool {
			return []string{"Please select yes or no"}, nil
		}
		return nil, nil
	case models.QuestionRanking:
		return v.validateRanking(value, constraints), nil
	default:
		return nil, fmt.Errorf("unsupported question type: %s", questionType)
	}
}

func (v *ResponseValidator) validateChoice(value models.AnswerValue, constraints models.QuestionConstraints) []string {
	if value.Kind != models.ValueText {
		return []string{"Please select an option"}
	}
	if len(constraints.Choices) == 0 {
		return nil
	}
	for _, choice := range constraints.Choices {
		if choice.Value == value.Text {
			return nil
		}
	}
	return []string{"Selected option is not one of the allowed choices"}
}

func (v *ResponseValidator) validateText(value models.AnswerValue, constraints models.QuestionConstraints, minLen, maxLen int) []string {
	if value.Kind != models.ValueText {
		return []string{"Response must be text"}
	}
	if constraints.MinLength != nil {
		minLen = *constraints.MinLength
	}
	if constraints.MaxLength != nil {
		maxLen = *constraints.MaxLength
	}

	var errs []string
	if len(value.Text) < minLen {
		errs = append(errs, fmt.Sprintf("Please provide a more detailed response (at least %d characters)", minLen))
	}
	if len(value.Text) > maxLen {
		errs = append(errs, fmt.Sprintf("Response is too long (max %d characters)", maxLen))
	}
	return errs
}

func (v *ResponseValidator) validateScale(value models.AnswerValue, constraints models.QuestionConstraints) []string {
	if value.Kind != models.ValueNumber {
		return []string{"Please select a value on the scale"}
	}
	sc := scaleOrDefault(constraints)
	if value.Number < float64(sc.Min) || value.Number > float64(sc.Max) {
		return []string{"Value must be within the scale range"}
	}
	return nil
}

func (v *ResponseValidator) validateRanking(value models.AnswerValue, constraints models.QuestionConstraints) []string {
	items, ok := value.StringList()
	if !ok || len(items) == 0 {
		return []string{"Please rank at least one item"}
	}
	if len(constraints.Items) == 0 {
		return nil
	}

	known := make(map[string]bool, len(constraints.Items))
	for _, item := range constraints.Items {
		known[item.Value] = true
	}
	for _, ranked := range items {
		if !known[ranked] {
			return []string{fmt.Sprintf("Ranked item '%s' is not a known item", ranked)}
		}
	}
	return nil
}

func (v *ResponseValidator) assessTextQuality(text string, result *ResponseValidationResult) {
	words := WordCount(text)
	sentences := sentenceCount(text)

	// Completeness
	if words < 3 {
		result.Warnings = append(result.Warnings, "Consider providing a more detailed response")
		result.Metadata.Completeness = 40
		result.Score -= 15
	} else if words < 10 {
		result.Metadata.Completeness = 70
		result.Score -= 5
	}

	// Thoughtfulness
	if sentences == 0 {
		result.Warnings = append(result.Warnings, "Your response seems incomplete")
		result.Metadata.Thoughtfulness = 30
		result.Score -= 20
	} else if sentences == 1 && words > 15 {
		result.Suggestions = append(result.Suggestions, "Consider breaking your response into multiple sentences for clarity")
		result.Metadata.Clarity = 80
	}

	// Authenticity: hedging phrases combined with a short answer
	lower := strings.ToLower(text)
	hedging := false
	for _, phrase := range genericPhrases {
		if strings.Contains(lower, phrase) {
			hedging = true
			break
		}
	}
	if hedging && words < 10 {
		result.Suggestions = append(result.Suggestions, "Try to be more specific about your thoughts and feelings")
		result.Metadata.Authenticity = 60
		result.Score -= 10
	}

	if words >= 10 && sentences >= 1 && !hedging {
		result.Suggestions = append(result.Suggestions, "Great job providing a thoughtful, detailed response!")
	}
}

func (v *ResponseValidator) assessScaleQuality(value float64, constraints models.QuestionConstraints, result *ResponseValidationResult) {
	sc := scaleOrDefault(constraints)

	if value == float64(sc.Min) || value == float64(sc.Max) {
		result.Suggestions = append(result.Suggestions,
			"Extreme values are perfectly valid! You might consider explaining your reasoning in follow-up questions.")
		return
	}

	lowMid := (sc.Min + sc.Max) / 2
	highMid := (sc.Min + sc.Max + 1) / 2
	if value == float64(lowMid) || value == float64(highMid) {
		result.Suggestions = append(result.Suggestions,
			"You chose a middle value. This might indicate mixed feelings - that's completely normal!")
	}
}

func (v *ResponseValidator) assessRankingQuality(items []string, result *ResponseValidationResult) {
	if len(items) < 3 {
		result.Suggestions = append(result.Suggestions,
			"Consider ranking more items to give us better insights into your preferences")
		result.Metadata.Completeness = 70
		result.Score -= 10
	}

	if len(items) >= 5 {
		result.Suggestions = append(result.Suggestions,
			"Excellent! Your comprehensive ranking helps us understand your priorities better.")
	}
}

var (
	positiveWords = []string{"happy", "excited", "love", "great", "awesome", "amazing", "wonderful"}
	negativeWords = []string{"sad", "worried", "anxious", "difficult", "hard", "challenging", "frustrated"}
)

// GenerateAnalytics derives word/character counts, complexity, and a coarse
// sentiment for one answer.
func (v *ResponseValidator) GenerateAnalytics(value models.AnswerValue, timeSpent, revisionCount int) ResponseAnalytics {
	analytics := ResponseAnalytics{
		ResponseTime:  timeSpent,
		RevisionCount: revisionCount,
		Complexity:    ComplexitySimple,
	}

	if value.Kind != models.ValueText {
		return analytics
	}

	text := value.Text
	analytics.CharacterCount = len(text)
	analytics.WordCount = WordCount(text)

	if analytics.WordCount > 50 {
		analytics.Complexity = ComplexityComplex
	} else if analytics.WordCount > 10 {
		analytics.Complexity = ComplexityModerate
	}

	lower := strings.ToLower(text)
	positiveCount := 0
	for _, word := range positiveWords {
		if strings.Contains(lower, word) {
			positiveCount++
		}
	}
	negativeCount := 0
	for _, word := range negativeWords {
		if strings.Contains(lower, word) {
			negativeCount++
		}
	}

	switch {
	case positiveCount > negativeCount:
		analytics.Sentiment = "positive"
	case negativeCount > positiveCount:
		analytics.Sentiment = "negative"
	default:
		analytics.Sentiment = "neutral"
	}

	return analytics
}

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

func sentenceCount(text string) int {
	count := 0
	for _, part := range sentenceSplit.Split(text, -1) {
		if strings.TrimSpace(part) != "" {
			count++
		}
	}
	return count
}

func scaleOrDefault(constraints models.QuestionConstraints) models.ScaleRange {
	if constraints.Scale != nil && constraints.Scale.Max > constraints.Scale.Min {
		return *constraints.Scale
	}
	return models.ScaleRange{Min: defaultScaleMin, Max: defaultScaleMax}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
