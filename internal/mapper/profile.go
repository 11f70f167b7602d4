package mapper

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/verisona-ai/analysis-service/internal/models"
)

// UserProfile is the derived profile summary sent to the Analyzer.
type UserProfile struct {
	UserID          uint            `json:"user_id"`
	Demographics    Demographics    `json:"demographics"`
	Characteristics Characteristics `json:"characteristics"`
	Preferences     Preferences     `json:"preferences"`
	Goals           Goals           `json:"goals"`
}

type Demographics struct {
	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	GraduationYear int    `json:"graduation_year,omitempty"`
	SchoolName     string `json:"school_name,omitempty"`
	Grade          string `json:"grade,omitempty"`
	Location       string `json:"location,omitempty"`
}

type Characteristics struct {
	EquityEligible     bool     `json:"equity_eligible"`
	FirstGeneration    bool     `json:"first_generation"`
	FinancialNeedLevel string   `json:"financial_need_level,omitempty"`
	LearningStyle      []string `json:"learning_style,omitempty"`
}

type Preferences struct {
	CollegeTypes          []string `json:"college_types,omitempty"`
	MajorInterests        []string `json:"major_interests,omitempty"`
	ActivityPreferences   []string `json:"activity_preferences,omitempty"`
	GeographicPreferences []string `json:"geographic_preferences,omitempty"`
	CulturalValues        []string `json:"cultural_values,omitempty"`
}

type Goals struct {
	CareerAspirations   []string `json:"career_aspirations,omitempty"`
	AcademicGoals       []string `json:"academic_goals,omitempty"`
	PersonalGrowthAreas []string `json:"personal_growth_areas,omitempty"`
	ImpactAreas         []string `json:"impact_areas,omitempty"`
}

// MapUserProfile derives the profile summary from the stored user record.
// Preference keys are best-effort: absent or malformed data yields empty
// lists, never an error.
func MapUserProfile(user *models.User) UserProfile {
	prefs := decodePreferences(user.Preferences)

	profile := UserProfile{
		UserID: user.ID,
		Demographics: Demographics{
			Grade: calculateGrade(user.GraduationYear),
		},
		Characteristics: Characteristics{
			EquityEligible:     user.EquityEligible,
			FirstGeneration:    user.FirstGeneration,
			FinancialNeedLevel: inferFinancialNeed(user),
			LearningStyle:      stringListValue(prefs, "learningStyle", "learning_style"),
		},
		Preferences: Preferences{
			CollegeTypes:          stringListValue(prefs, "collegeTypes", "college_types"),
			MajorInterests:        stringListValue(prefs, "majors", "academicInterests"),
			ActivityPreferences:   stringListValue(prefs, "activities", "extracurriculars"),
			GeographicPreferences: stringListValue(prefs, "geography", "location"),
			CulturalValues:        stringListValue(prefs, "values", "culture"),
		},
		Goals: Goals{
			CareerAspirations:   stringListValue(prefs, "career", "careerGoals"),
			AcademicGoals:       stringListValue(prefs, "academic", "academicGoals"),
			PersonalGrowthAreas: stringListValue(prefs, "growth", "personalGrowth"),
			ImpactAreas:         stringListValue(prefs, "impact", "socialImpact"),
		},
	}

	if user.FirstName != nil {
		profile.Demographics.FirstName = *user.FirstName
	}
	if user.LastName != nil {
		profile.Demographics.LastName = *user.LastName
	}
	if user.GraduationYear != nil {
		profile.Demographics.GraduationYear = *user.GraduationYear
	}
	if user.SchoolName != nil {
		profile.Demographics.SchoolName = *user.SchoolName
	}
	if user.Location != nil {
		profile.Demographics.Location = *user.Location
	}

	return profile
}

func decodePreferences(raw []byte) map[string]interface{} {
	if len(raw) == 0 {
		return nil
	}
	var prefs map[string]interface{}
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return nil
	}
	return prefs
}

// stringListValue looks up the first present key and normalizes its value
// to a string list. A scalar string becomes a one-element list.
func stringListValue(prefs map[string]interface{}, keys ...string) []string {
	for _, key := range keys {
		value, ok := prefs[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			if v != "" {
				return []string{v}
			}
		case []interface{}:
			out := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok && s != "" {
					out = append(out, s)
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

func calculateGrade(graduationYear *int) string {
	if graduationYear == nil {
		return ""
	}
	grade := 12 - (*graduationYear - time.Now().Year())
	if grade >= 9 && grade <= 12 {
		return fmt.Sprintf("%dth", grade)
	}
	return ""
}

func inferFinancialNeed(user *models.User) string {
	if user.EquityEligible {
		return "high"
	}
	return ""
}
