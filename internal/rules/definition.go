// Package rules holds the operator-configured field definitions that drive
// extraction: their JSON wire form, the typed fields they compile into, the
// immutable rule-set snapshot and the mutable store the host application owns.
package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Kind is the declared type of a field definition
type Kind string

const (
	KindText     Kind = "text"
	KindNumber   Kind = "number"
	KindCheckbox Kind = "checkbox"
)

const (
	DefaultCheckedValue   = "1"
	DefaultUncheckedValue = "0"

	// CheckboxGlyphs is the character class of marks accepted as a ticked box
	CheckboxGlyphs = `[xX✓✔☑☒✗✘❌■]`
)

// ErrMalformedRule is wrapped by every error caused by a bad field definition
var ErrMalformedRule = errors.New("malformed field definition")

// RuleError reports a field definition that cannot be evaluated
type RuleError struct {
	Field  string
	Reason string
}

func (e *RuleError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrMalformedRule, e.Reason)
	}
	return fmt.Sprintf("%s %q: %s", ErrMalformedRule, e.Field, e.Reason)
}

func (e *RuleError) Unwrap() error {
	return ErrMalformedRule
}

// Definition is the wire form of one output column's extraction rule.
// AcroKey is the legacy spelling of StructuredKey and is still accepted on input.
type Definition struct {
	Name           string  `json:"name"`
	Type           Kind    `json:"type"`
	Pattern        string  `json:"pattern,omitempty"`
	StructuredKey  string  `json:"structured_key,omitempty"`
	AcroKey        string  `json:"acro_key,omitempty"`
	CheckedValue   *string `json:"checked_value,omitempty"`
	UncheckedValue *string `json:"unchecked_value,omitempty"`
}

// NewFieldDefinition builds a definition the way the field editor does:
// the display name is upper-cased, the structured key is the lower-cased
// input, and checkboxes get a glyph pattern in either order around the label.
func NewFieldDefinition(name string, kind Kind) Definition {
	name = strings.TrimSpace(name)
	def := Definition{
		Name:          strings.ToUpper(name),
		Type:          kind,
		StructuredKey: strings.ToLower(name),
	}
	if kind == KindCheckbox {
		def.Pattern = CheckboxPattern(name)
		checked, unchecked := DefaultCheckedValue, DefaultUncheckedValue
		def.CheckedValue = &checked
		def.UncheckedValue = &unchecked
	}
	return def
}

// CheckboxPattern matches a tick glyph just before label, or within 30
// characters after it on the same line.
func CheckboxPattern(label string) string {
	quoted := regexp.QuoteMeta(label)
	return fmt.Sprintf(`(?:%s\s*%s)|(?:%s[^\n]{0,30}%s)`,
		CheckboxGlyphs, quoted, quoted, CheckboxGlyphs)
}

// DefaultPattern is the pattern synthesized for a definition without one
func DefaultPattern(name string) string {
	return regexp.QuoteMeta(name) + `\s*:\s*(.+)`
}

// Key returns the lower-cased structured-field key of the definition
func (d Definition) Key() string {
	switch {
	case d.StructuredKey != "":
		return strings.ToLower(d.StructuredKey)
	case d.AcroKey != "":
		return strings.ToLower(d.AcroKey)
	default:
		return strings.ToLower(d.Name)
	}
}

// EffectivePattern returns the explicit pattern or the synthesized default
func (d Definition) EffectivePattern() string {
	if d.Pattern != "" {
		return d.Pattern
	}
	return DefaultPattern(d.Name)
}

// Field converts the definition into its typed variant. Pattern syntax is not
// checked here; that happens when a rule set is compiled for extraction.
func (d Definition) Field() (Field, error) {
	if d.Name == "" {
		return nil, &RuleError{Reason: "missing name"}
	}

	base := fieldBase{
		name:    d.Name,
		key:     d.Key(),
		pattern: d.EffectivePattern(),
	}

	switch d.Type {
	case KindText:
		return TextField{fieldBase: base}, nil
	case KindNumber:
		return NumberField{fieldBase: base}, nil
	case KindCheckbox:
		cb := CheckboxField{
			fieldBase: base,
			Checked:   DefaultCheckedValue,
			Unchecked: DefaultUncheckedValue,
		}
		if d.CheckedValue != nil {
			cb.Checked = *d.CheckedValue
		}
		if d.UncheckedValue != nil {
			cb.Unchecked = *d.UncheckedValue
		}
		return cb, nil
	case "":
		return nil, &RuleError{Field: d.Name, Reason: "missing type"}
	default:
		return nil, &RuleError{Field: d.Name, Reason: fmt.Sprintf("unknown type %q", d.Type)}
	}
}
