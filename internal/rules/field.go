package rules

// Field is the closed set of typed extraction rules. Only TextField,
// NumberField and CheckboxField implement it.
type Field interface {
	Name() string
	StructuredKey() string
	Pattern() string
	Kind() Kind

	sealed()
}

type fieldBase struct {
	name    string
	key     string
	pattern string
}

func (f fieldBase) Name() string          { return f.name }
func (f fieldBase) StructuredKey() string { return f.key }
func (f fieldBase) Pattern() string       { return f.pattern }
func (fieldBase) sealed()                 {}

// TextField yields the first capture group, trimmed
type TextField struct {
	fieldBase
}

func (TextField) Kind() Kind { return KindText }

// NumberField yields the digits of the first capture group
type NumberField struct {
	fieldBase
}

func (NumberField) Kind() Kind { return KindNumber }

// CheckboxField yields Checked when its pattern matches anywhere, else Unchecked
type CheckboxField struct {
	fieldBase
	Checked   string
	Unchecked string
}

func (CheckboxField) Kind() Kind { return KindCheckbox }
