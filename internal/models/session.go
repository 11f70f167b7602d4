package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionAbandoned  SessionStatus = "abandoned"
)

// Session is one questionnaire attempt. It is created by the questionnaire
// surface and immutable here once completed, except for analysis linkage.
type Session struct {
	ID              uint          `json:"id" gorm:"primaryKey"`
	SessionID       string        `json:"session_id" gorm:"not null;uniqueIndex;size:64"`
	UserID          uint          `json:"user_id" gorm:"not null;index"`
	QuestionnaireID uint          `json:"questionnaire_id" gorm:"not null;index"`
	Status          SessionStatus `json:"status" gorm:"default:in_progress;index"`

	TotalQuestions    int `json:"total_questions"`
	AnsweredQuestions int `json:"answered_questions"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionText           QuestionType = "text"
	QuestionTextarea       QuestionType = "textarea"
	QuestionScale          QuestionType = "scale"
	QuestionBoolean        QuestionType = "boolean"
	QuestionRanking        QuestionType = "ranking"
)

// ChoiceOption is one selectable choice or rankable item.
type ChoiceOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// ScaleRange bounds a scale question.
type ScaleRange struct {
	Min  int `json:"min"`
	Max  int `json:"max"`
	Step int `json:"step,omitempty"`
}

// QuestionConstraints is the type-specific configuration stored in
// Question.Options. All fields are optional; defaults apply per type.
type QuestionConstraints struct {
	Choices   []ChoiceOption `json:"choices,omitempty"`
	Items     []ChoiceOption `json:"items,omitempty"`
	Scale     *ScaleRange    `json:"scale,omitempty"`
	MinLength *int           `json:"min_length,omitempty"`
	MaxLength *int           `json:"max_length,omitempty"`
}

type Question struct {
	ID         uint         `json:"id" gorm:"primaryKey"`
	Text       string       `json:"text" gorm:"not null;type:text"`
	Type       QuestionType `json:"type" gorm:"not null;index"`
	Category   string       `json:"category" gorm:"size:100;default:general"`
	IsRequired bool         `json:"is_required" gorm:"default:false"`

	Options datatypes.JSON `json:"options" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Constraints decodes the options blob; a missing or malformed blob yields
// empty constraints so defaults apply.
func (q *Question) Constraints() QuestionConstraints {
	var c QuestionConstraints
	if len(q.Options) > 0 {
		_ = json.Unmarshal(q.Options, &c)
	}
	return c
}

// Answer is one response to one question within a session, unique per
// (session_id, question_id). Read-only once the session is completed.
type Answer struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	SessionID  string `json:"session_id" gorm:"not null;uniqueIndex:idx_answer_session_question;size:64"`
	QuestionID uint   `json:"question_id" gorm:"not null;uniqueIndex:idx_answer_session_question"`

	RawValue datatypes.JSON `json:"raw_value" gorm:"type:jsonb"`

	TimeSpentSeconds int `json:"time_spent_seconds"`
	RevisionCount    int `json:"revision_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Value classifies the raw payload into the tagged union.
func (a *Answer) Value() AnswerValue {
	return ParseAnswerValue(a.RawValue)
}
