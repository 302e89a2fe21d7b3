package extraction

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	pdferrors "github.com/a3tai/pdf-form-importer/internal/pdf/errors"
	"github.com/a3tai/pdf-form-importer/internal/rules"
)

// matchFlags makes every rule case-insensitive, multi-line and dot-all
const matchFlags = "(?ims)"

type compiledField struct {
	field rules.Field
	re    *regexp.Regexp
}

// Parser applies a compiled rule set to normalized text. It is read-only
// after construction and safe for concurrent use.
type Parser struct {
	fields []compiledField
}

// NewParser compiles every field of set. A malformed definition is returned
// as an ErrorTypeMalformedRule error naming the field.
func NewParser(set rules.Set) (*Parser, error) {
	defs := set.Definitions()
	p := &Parser{fields: make([]compiledField, 0, len(defs))}

	for _, def := range defs {
		field, err := def.Field()
		if err != nil {
			return nil, pdferrors.WrapError(pdferrors.ErrorTypeMalformedRule,
				"invalid field definition", err).WithField(def.Name)
		}

		re, err := regexp.Compile(matchFlags + field.Pattern())
		if err != nil {
			return nil, pdferrors.WrapError(pdferrors.ErrorTypeMalformedRule,
				"invalid pattern", err).WithField(def.Name)
		}

		if _, isCheckbox := field.(rules.CheckboxField); !isCheckbox && re.NumSubexp() < 1 {
			return nil, pdferrors.WrapError(pdferrors.ErrorTypeMalformedRule,
				"pattern has no capture group", fmt.Errorf("pattern %q", field.Pattern())).WithField(def.Name)
		}

		p.fields = append(p.fields, compiledField{field: field, re: re})
	}

	return p, nil
}

// Names returns the field names in column order
func (p *Parser) Names() []string {
	names := make([]string, len(p.fields))
	for i, cf := range p.fields {
		names[i] = cf.field.Name()
	}
	return names
}

// Parse runs every rule against text and returns one value per field.
// Only the first match of each pattern is considered.
func (p *Parser) Parse(text string) []FieldValue {
	out := make([]FieldValue, 0, len(p.fields))
	for _, cf := range p.fields {
		out = append(out, FieldValue{
			Name:  cf.field.Name(),
			Value: interpret(cf.field, cf.re.FindStringSubmatch(text)),
		})
	}
	return out
}

// FromStructured maps a structured field dictionary onto the rule set.
// Keys missing from values give empty strings.
func (p *Parser) FromStructured(values map[string]string) []FieldValue {
	out := make([]FieldValue, 0, len(p.fields))
	for _, cf := range p.fields {
		out = append(out, FieldValue{
			Name:  cf.field.Name(),
			Value: values[cf.field.StructuredKey()],
		})
	}
	return out
}

// interpret turns a match (nil when the pattern did not match) into the
// field's output value.
func interpret(field rules.Field, match []string) string {
	switch f := field.(type) {
	case rules.CheckboxField:
		if match != nil {
			return f.Checked
		}
		return f.Unchecked
	case rules.NumberField:
		if match == nil {
			return ""
		}
		return digitsOnly(match[1])
	case rules.TextField:
		if match == nil {
			return ""
		}
		return strings.TrimSpace(match[1])
	default:
		return ""
	}
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
