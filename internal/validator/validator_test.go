package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type tagFixture struct {
	AnalysisType string `json:"analysis_type" validate:"omitempty,analysis_type"`
	QuestionType string `json:"question_type" validate:"omitempty,question_type"`
	DetailLevel  string `json:"detail_level" validate:"omitempty,detail_level"`
	SessionID    string `json:"session_id" validate:"omitempty,session_token"`
}

func TestAnalysisTypeTag(t *testing.T) {
	v := New()

	for _, value := range []string{"personality", "academic", "college_match", "comprehensive"} {
		assert.NoError(t, v.ValidateStruct(tagFixture{AnalysisType: value}), value)
	}
	assert.Error(t, v.ValidateStruct(tagFixture{AnalysisType: "astrology"}))
}

func TestQuestionTypeTag(t *testing.T) {
	v := New()

	assert.NoError(t, v.ValidateStruct(tagFixture{QuestionType: "multiple_choice"}))
	assert.NoError(t, v.ValidateStruct(tagFixture{QuestionType: "textarea"}))
	assert.Error(t, v.ValidateStruct(tagFixture{QuestionType: "matrix"}))
}

func TestDetailLevelTag(t *testing.T) {
	v := New()

	for _, value := range []string{"summary", "detailed", "comprehensive"} {
		assert.NoError(t, v.ValidateStruct(tagFixture{DetailLevel: value}), value)
	}
	assert.Error(t, v.ValidateStruct(tagFixture{DetailLevel: "verbose"}))
}

func TestSessionTokenTag(t *testing.T) {
	v := New()

	assert.NoError(t, v.ValidateStruct(tagFixture{SessionID: "sess_ABC-123"}))
	assert.Error(t, v.ValidateStruct(tagFixture{SessionID: "short"}), "below minimum length")
	assert.Error(t, v.ValidateStruct(tagFixture{SessionID: "has spaces here"}), "illegal characters")
}
