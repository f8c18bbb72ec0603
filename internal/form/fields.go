package form

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"idintake/internal/application"
	"idintake/internal/schema"
	dErrors "idintake/pkg/domain-errors"
)

// MsgDateFormat is shown when a date-like field is not YYYY-MM-DD.
const MsgDateFormat = "DOB format must be YYYY-MM-DD"

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	nonDigits   = regexp.MustCompile(`\D`)

	labelPolicyOnce sync.Once
	labelPolicy     *bluemonday.Policy
)

// Control is one rendered input.
type Control struct {
	Name        string
	Label       string
	InputType   string
	Placeholder string
	MaxLength   int // 0 means unbounded
	Required    bool
	Value       string
	Normalize   string // "digits", "upper" or "", mirrored by the embedded script
}

// NewControl derives the input for field f. The first matching name rule
// decides type, placeholder and max length.
func NewControl(f schema.Field, value string) Control {
	c := Control{
		Name:      f.Name,
		Label:     Label(f),
		InputType: "text",
		Required:  f.Required,
		Value:     value,
		Normalize: normalizeHint(f.Name),
	}
	name := f.Name
	switch {
	case strings.Contains(name, "email"):
		c.InputType = "email"
		c.Placeholder = "your.email@example.com"
	case IsDateField(name):
		c.Placeholder = "YYYY-MM-DD"
	case strings.Contains(name, "ssn"):
		c.Placeholder = "123456789 (9 digits, no dashes)"
		c.MaxLength = 9
	case strings.Contains(name, "state") && f.HasMaxLength(2):
		c.Placeholder = "NY"
		c.MaxLength = 2
	case strings.Contains(name, "country"):
		c.Placeholder = "US"
		c.MaxLength = 2
	default:
		c.Placeholder = "Enter " + strings.ToLower(c.Label)
	}
	return c
}

// Label is the sanitized description, or the humanized name when there is none.
func Label(f schema.Field) string {
	if f.Description != "" {
		if label := sanitizeLabel(f.Description); label != "" {
			return label
		}
	}
	return humanize(f.Name)
}

func humanize(name string) string {
	return cases.Title(language.English, cases.NoLower).String(strings.ReplaceAll(name, "_", " "))
}

// sanitizeLabel strips all markup. The policy escapes text, so the result is
// unescaped again and left to html/template.
func sanitizeLabel(raw string) string {
	labelPolicyOnce.Do(func() {
		labelPolicy = bluemonday.StrictPolicy()
	})
	return strings.TrimSpace(html.UnescapeString(labelPolicy.Sanitize(raw)))
}

// IsDateField reports whether name holds a date.
func IsDateField(name string) bool {
	return strings.Contains(name, "birth_date") || strings.Contains(name, "date")
}

// Normalize applies the as-you-type transforms: ssn keeps digits only,
// state and country are uppercased.
func Normalize(name, value string) string {
	if strings.Contains(name, "ssn") {
		value = nonDigits.ReplaceAllString(value, "")
	}
	if strings.Contains(name, "state") || strings.Contains(name, "country") {
		value = strings.ToUpper(value)
	}
	return value
}

func normalizeHint(name string) string {
	switch {
	case strings.Contains(name, "ssn"):
		return "digits"
	case strings.Contains(name, "state") || strings.Contains(name, "country"):
		return "upper"
	default:
		return ""
	}
}

// Validate checks the record against the client-side rules. Only date format
// blocks submission; everything else is left to the provider.
func Validate(m *schema.Map, rec *application.Record) error {
	for _, name := range m.Names() {
		value := rec.Get(name)
		if value != "" && IsDateField(name) && !datePattern.MatchString(value) {
			return dErrors.New(dErrors.CodeValidation, MsgDateFormat)
		}
	}
	return nil
}
