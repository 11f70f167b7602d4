package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type AnalysisType string

const (
	AnalysisPersonality   AnalysisType = "personality"
	AnalysisAcademic      AnalysisType = "academic"
	AnalysisCollegeMatch  AnalysisType = "college_match"
	AnalysisComprehensive AnalysisType = "comprehensive"
)

// ParseAnalysisType validates a wire value; the empty string defaults to
// comprehensive.
func ParseAnalysisType(s string) (AnalysisType, bool) {
	switch AnalysisType(s) {
	case AnalysisPersonality, AnalysisAcademic, AnalysisCollegeMatch, AnalysisComprehensive:
		return AnalysisType(s), true
	case "":
		return AnalysisComprehensive, true
	default:
		return "", false
	}
}

type ReportStatus string

const (
	ReportQueued     ReportStatus = "queued"
	ReportProcessing ReportStatus = "processing"
	ReportCompleted  ReportStatus = "completed"
	ReportFailed     ReportStatus = "failed"
)

// ReportContent is the single content shape used by every execution path.
type ReportContent struct {
	Text        string    `json:"text"`
	Format      string    `json:"format"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ErrorDetail is the structured failure record stored on a failed report.
type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// AnalysisOptions tune the Analyzer request. Advisory only; they never
// change orchestrator control flow.
type AnalysisOptions struct {
	IncludeRecommendations bool   `json:"include_recommendations"`
	IncludeCollegeMatches  bool   `json:"include_college_matches"`
	IncludeEssayGuidance   bool   `json:"include_essay_guidance"`
	DetailLevel            string `json:"detail_level" validate:"omitempty,detail_level"`
}

// DefaultAnalysisOptions mirrors the questionnaire surface defaults.
func DefaultAnalysisOptions() AnalysisOptions {
	return AnalysisOptions{
		IncludeRecommendations: true,
		IncludeCollegeMatches:  true,
		DetailLevel:            "detailed",
	}
}

// Report is the analysis job record. At most one non-failed report exists
// per (session_id, type); a partial unique index created at migration time
// enforces the constraint.
type Report struct {
	ID        string       `json:"id" gorm:"primaryKey;size:36"`
	SessionID string       `json:"session_id" gorm:"not null;index:idx_report_session_type;size:64"`
	UserID    uint         `json:"user_id" gorm:"not null;index"`
	Type      AnalysisType `json:"type" gorm:"not null;index:idx_report_session_type"`
	Status    ReportStatus `json:"status" gorm:"not null;default:queued;index"`
	Title     string       `json:"title" gorm:"size:200"`

	Content     datatypes.JSON `json:"content,omitempty" gorm:"type:jsonb"`
	Summary     *string        `json:"summary,omitempty" gorm:"type:text"`
	ErrorDetail datatypes.JSON `json:"error_detail,omitempty" gorm:"type:jsonb"`
	Options     datatypes.JSON `json:"options,omitempty" gorm:"type:jsonb"`

	ProcessingMS int64 `json:"processing_ms"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// SetContent stores the content payload.
func (r *Report) SetContent(c ReportContent) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	r.Content = raw
	return nil
}

// ContentValue decodes the stored content payload.
func (r *Report) ContentValue() (ReportContent, bool) {
	if len(r.Content) == 0 {
		return ReportContent{}, false
	}
	var c ReportContent
	if err := json.Unmarshal(r.Content, &c); err != nil {
		return ReportContent{}, false
	}
	return c, true
}

// SetOptions stores the requested analysis options.
func (r *Report) SetOptions(o AnalysisOptions) error {
	raw, err := json.Marshal(o)
	if err != nil {
		return err
	}
	r.Options = raw
	return nil
}

// OptionsValue decodes the stored analysis options.
func (r *Report) OptionsValue() (AnalysisOptions, bool) {
	if len(r.Options) == 0 {
		return AnalysisOptions{}, false
	}
	var o AnalysisOptions
	if err := json.Unmarshal(r.Options, &o); err != nil {
		return AnalysisOptions{}, false
	}
	return o, true
}

// SetErrorDetail stores the structured failure record.
func (r *Report) SetErrorDetail(d ErrorDetail) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	r.ErrorDetail = raw
	return nil
}

// ErrorDetailValue decodes the stored failure record.
func (r *Report) ErrorDetailValue() (ErrorDetail, bool) {
	if len(r.ErrorDetail) == 0 {
		return ErrorDetail{}, false
	}
	var d ErrorDetail
	if err := json.Unmarshal(r.ErrorDetail, &d); err != nil {
		return ErrorDetail{}, false
	}
	return d, true
}

// IsTerminal reports whether the status admits no further transition short
// of an explicit retry.
func (s ReportStatus) IsTerminal() bool {
	return s == ReportCompleted || s == ReportFailed
}

// ReportTitle names a report after its analysis type, in the voice used by
// the reports surface.
func ReportTitle(analysisType AnalysisType, user *User) string {
	owner := "Your"
	if user != nil {
		owner = user.DisplayName()
	}

	switch analysisType {
	case AnalysisPersonality:
		return owner + " Personality Analysis"
	case AnalysisAcademic:
		return owner + " Academic Profile"
	case AnalysisCollegeMatch:
		return owner + " College Match Report"
	case AnalysisComprehensive:
		return owner + " Complete Persona Analysis"
	default:
		return owner + " Analysis Report"
	}
}
