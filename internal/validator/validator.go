package validator

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/verisona-ai/analysis-service/internal/models"
)

// Validator combines struct-tag validation of request payloads with the
// response quality validator.
type Validator struct {
	structValidator   *validator.Validate
	responseValidator *ResponseValidator
}

// New creates the centralized validator instance.
func New() *Validator {
	structValidator := validator.New()
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator:   structValidator,
		responseValidator: NewResponseValidator(),
	}
}

// ValidateStruct validates struct tags only.
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Response returns the response quality validator.
func (v *Validator) Response() *ResponseValidator {
	return v.responseValidator
}

var sessionTokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("analysis_type", validateAnalysisType)
	validate.RegisterValidation("question_type", validateQuestionType)
	validate.RegisterValidation("detail_level", validateDetailLevel)
	validate.RegisterValidation("session_token", validateSessionToken)

	// Use json tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateAnalysisType(fl validator.FieldLevel) bool {
	_, ok := models.ParseAnalysisType(fl.Field().String())
	return ok
}

func validateQuestionType(fl validator.FieldLevel) bool {
	validTypes := []models.QuestionType{
		models.QuestionMultipleChoice,
		models.QuestionText,
		models.QuestionTextarea,
		models.QuestionScale,
		models.QuestionBoolean,
		models.QuestionRanking,
	}

	value := fl.Field().String()
	for _, validType := range validTypes {
		if string(validType) == value {
			return true
		}
	}
	return false
}

func validateDetailLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "summary", "detailed", "comprehensive":
		return true
	}
	return false
}

func validateSessionToken(fl validator.FieldLevel) bool {
	return sessionTokenPattern.MatchString(fl.Field().String())
}
