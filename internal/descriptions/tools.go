package descriptions

import "sort"

// Tool descriptions with practical examples, shown to MCP clients

const (
	FormsListFieldsDescription = `List the active field rules used to extract membership forms.

**When to use:** Before importing, to see which columns the CSV will contain and how each value is found.

**Output:** One line per field with its type (text, number or checkbox), the form-field key used for fillable PDFs and the pattern used on scanned text. The last column is always SourcePDF.

**Examples:**
• "Which fields do we extract from the registration forms?"
• "Show the pattern used for the postcode field"

**Common workflows:**
1. Tuning: forms_list_fields → forms_extract_file on a sample → adjust with forms_add_field / forms_remove_field`

	FormsAddFieldDescription = `Add a field to the extraction rules and save the rule file.

**When to use:** A form gained a new box, or a value is missing from the CSV.

**Parameters:** name and type are required. Without a pattern, text and number fields match "NAME : value"; checkbox fields match a tick mark (x, ✓, ☑ ...) next to the label. The structured key defaults to the lower-cased name and is matched against fillable PDF field names.

**Examples:**
• Add a phone column: name "Portable", type "number"
• Add a tick box: name "Competition", type "checkbox", checked_value "Oui", unchecked_value "Non"

**Best practices:** Patterns use RE2 syntax and are matched case-insensitively across lines; text and number patterns need one capture group for the value.`

	FormsRemoveFieldDescription = `Remove a field from the extraction rules and save the rule file.

**When to use:** A column is no longer wanted in the CSV.

**Examples:**
• "Stop extracting AutresRemarques"`

	FormsExtractFileDescription = `Extract one PDF form with the current rules without writing any CSV.

**When to use:** Checking the rules on a sample document, or reading a single registration.

**How it works:** Fillable PDFs are read from their form fields. Scanned PDFs are rendered and recognised with OCR, then every rule pattern is applied to the text.

**Examples:**
• "What does dupont.pdf contain?"
• "Check that the new Telephone rule works on scan-004.pdf"`

	FormsImportDirectoryDescription = `Import every PDF form of a directory into a CSV file.

**When to use:** Processing a folder of registrations in one go.

**Behaviour:** All documents use the same snapshot of the rules. Documents that cannot be read or recognised are skipped and listed as failures; the others are written in file-name order, one row each, with a SourcePDF column. With append, rows are added to an existing CSV and the header is only written for a new file.

**Examples:**
• "Import the forms in inbox/2024 into members.csv"
• "Import only files matching 'junior' and append to juniors.csv"

**Best practices:** Run forms_extract_file on one sample first when the rules changed.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"forms_list_fields":      FormsListFieldsDescription,
	"forms_add_field":        FormsAddFieldDescription,
	"forms_remove_field":     FormsRemoveFieldDescription,
	"forms_extract_file":     FormsExtractFileDescription,
	"forms_import_directory": FormsImportDirectoryDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the available tool names in sorted order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
