package xray

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CVE identifier format, per https://cve.mitre.org/cve/identifiers/tech-guidance.html
var cveRe = regexp.MustCompile(`^CVE-\d{4}-\d{4,}$`)

var severities = map[string]bool{
	"critical":    true,
	"high":        true,
	"medium":      true,
	"low":         true,
	"information": true,
	"unknown":     true,
}

// SchemaError reports the first constraint a webhook payload violated.
type SchemaError struct {
	Field      string
	Constraint string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid webhook payload: field %q failed %q", e.Field, e.Constraint)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Registration only fails on a nil/blank tag, which would be a
	// programming error here.
	_ = v.RegisterValidation("xray_severity", func(fl validator.FieldLevel) bool {
		return severities[strings.ToLower(fl.Field().String())]
	})
	_ = v.RegisterValidation("xray_type", func(fl validator.FieldLevel) bool {
		_, err := ParseKind(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("cve_id", func(fl validator.FieldLevel) bool {
		return cveRe.MatchString(fl.Field().String())
	})

	return v
}

// ValidateWebhook decodes and validates a raw webhook payload. Unknown extra
// fields are ignored, not rejected. Returns a SchemaError on the first
// violated constraint.
func ValidateWebhook(raw []byte) (*WebhookEvent, error) {
	var evt WebhookEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return nil, &SchemaError{Field: "(body)", Constraint: "json"}
	}

	if err := validate.Struct(&evt); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return nil, &SchemaError{Field: fe.Namespace(), Constraint: fe.Tag()}
		}
		return nil, &SchemaError{Field: "(body)", Constraint: "struct"}
	}

	return &evt, nil
}
