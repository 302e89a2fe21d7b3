package extraction

// SourceColumn names the document-identifying column appended to every record
const SourceColumn = "SourcePDF"

// Method tells which path produced a record
type Method string

const (
	MethodStructured Method = "structured"
	MethodOCR        Method = "ocr"
)

// FieldValue is one extracted column
type FieldValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Record holds every configured field of one document, in rule-set order,
// followed by the source identifier. Records are not modified after Extract
// returns them.
type Record struct {
	Fields []FieldValue `json:"fields"`
	Source string       `json:"source"`
	Method Method       `json:"method"`
}

// Columns returns the field names followed by SourceColumn
func (r *Record) Columns() []string {
	cols := make([]string, 0, len(r.Fields)+1)
	for _, f := range r.Fields {
		cols = append(cols, f.Name)
	}
	return append(cols, SourceColumn)
}

// Values returns the field values followed by the source, aligned with Columns
func (r *Record) Values() []string {
	vals := make([]string, 0, len(r.Fields)+1)
	for _, f := range r.Fields {
		vals = append(vals, f.Value)
	}
	return append(vals, r.Source)
}

// Get returns the value of column name
func (r *Record) Get(name string) (string, bool) {
	if name == SourceColumn {
		return r.Source, true
	}
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Map returns the record as a column → value map
func (r *Record) Map() map[string]string {
	m := make(map[string]string, len(r.Fields)+1)
	for _, f := range r.Fields {
		m[f.Name] = f.Value
	}
	m[SourceColumn] = r.Source
	return m
}
