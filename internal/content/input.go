package content

import (
	"errors"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/MediSynth-io/contentplanner/internal/models"
	"github.com/go-playground/validator/v10"
)

// dateLayouts are tried in order. Layouts without an offset are read as UTC.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDate accepts the date formats clients send for scheduled dates.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("unrecognised date format")
}

// CreateInput is the body accepted when creating a content item.
type CreateInput struct {
	Title         string  `json:"title" validate:"notblank,singleline"`
	Description   *string `json:"description" validate:"omitempty,singleline"`
	Platform      string  `json:"platform" validate:"required,oneof=social email blog"`
	ScheduledDate string  `json:"scheduledDate" validate:"required,planneddate"`
	Status        string  `json:"status" validate:"omitempty,oneof=draft scheduled posted"`
	TemplateID    *string `json:"templateId"`
}

// UpdateInput is a partial update. Absent fields are left unchanged.
type UpdateInput struct {
	Title         *string `json:"title" validate:"omitempty,notblank,singleline"`
	Description   *string `json:"description" validate:"omitempty,singleline"`
	Platform      *string `json:"platform" validate:"omitempty,oneof=social email blog"`
	ScheduledDate *string `json:"scheduledDate" validate:"omitempty,planneddate"`
	Status        *string `json:"status" validate:"omitempty,oneof=draft scheduled posted"`
	TemplateID    *string `json:"templateId"`
}

// ReminderInput requests an explicit reminder for an item.
type ReminderInput struct {
	ContentItemID string `json:"contentItemId" validate:"required"`
	ScheduledFor  string `json:"scheduledFor" validate:"required,planneddate"`
}

func (in CreateInput) item(userID string) models.ContentItem {
	when, _ := ParseDate(in.ScheduledDate)
	status := models.ContentStatus(in.Status)
	if status == "" {
		status = models.StatusDraft
	}
	return models.ContentItem{
		UserID:        userID,
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		Platform:      models.Platform(in.Platform),
		ScheduledDate: when,
		Status:        status,
		TemplateID:    blankToNil(in.TemplateID),
	}
}

func (in UpdateInput) patch() models.ContentPatch {
	var p models.ContentPatch
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		p.Title = &title
	}
	p.Description = in.Description
	if in.Platform != nil {
		platform := models.Platform(*in.Platform)
		p.Platform = &platform
	}
	if in.ScheduledDate != nil {
		when, _ := ParseDate(*in.ScheduledDate)
		p.ScheduledDate = &when
	}
	if in.Status != nil {
		status := models.ContentStatus(*in.Status)
		p.Status = &status
	}
	p.TemplateID = blankToNil(in.TemplateID)
	return p
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	// Exports write one line per item, so line breaks and other control characters are refused.
	_ = v.RegisterValidation("singleline", func(fl validator.FieldLevel) bool {
		return strings.IndexFunc(fl.Field().String(), unicode.IsControl) < 0
	})
	_ = v.RegisterValidation("planneddate", func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	})
	return v
}

func check(v *validator.Validate, in any) error {
	err := v.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "Required"
	case "oneof":
		return "Must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "planneddate":
		return "Invalid date"
	case "singleline":
		return "Must not contain line breaks or control characters"
	}
	return "Invalid value"
}
