package pdf

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pdferrors "github.com/a3tai/pdf-form-importer/internal/pdf/errors"
	"github.com/a3tai/pdf-form-importer/internal/pdf/extraction"
	"github.com/a3tai/pdf-form-importer/internal/rules"
)

type stubForms map[string]map[string]string

func (s stubForms) FormFields(path string) map[string]string {
	return s[filepath.Base(path)]
}

type stubOCR struct {
	texts map[string]string
	errs  map[string]error
}

func (s stubOCR) RecognizeText(_ context.Context, path string) (string, error) {
	name := filepath.Base(path)
	if err := s.errs[name]; err != nil {
		return "", err
	}
	return s.texts[name], nil
}

// nameValidator rejects the listed file names and counts the files it saw
type nameValidator struct {
	reject map[string]bool
	calls  int
}

func (v *nameValidator) ValidateFile(path string) error {
	v.calls++
	if v.reject[filepath.Base(path)] {
		return pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidDocument, "invalid input").WithFile(path)
	}
	return nil
}

type serviceFixture struct {
	service   *Service
	store     *rules.Store
	validator *nameValidator
	dir       string
	rulesPath string
}

func newServiceFixture(t *testing.T, defs []rules.Definition, reject ...string) *serviceFixture {
	t.Helper()

	dir := t.TempDir()
	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	store, err := rules.NewStore(defs)
	require.NoError(t, err)

	forms := stubForms{"a.pdf": {"nom": "Dupont", "ville": "Lyon"}}
	ocr := stubOCR{
		texts: map[string]string{"b.pdf": "Nom :  Martin\nVille : Paris", "c.pdf": "Nom : Durand"},
		errs:  map[string]error{"d.pdf": errors.New("tesseract failed")},
	}
	quiet := log.New(io.Discard, "", 0)

	rejected := &nameValidator{reject: map[string]bool{}}
	for _, name := range reject {
		rejected.reject[name] = true
	}

	rulesPath := filepath.Join(t.TempDir(), "rules.json")
	service, err := NewService(ServiceConfig{
		Store:     store,
		Engine:    extraction.NewEngine(forms, ocr, quiet, false),
		Validator: rejected,
		Directory: dir,
		RulesPath: rulesPath,
		Workers:   2,
		Logger:    quiet,
	})
	require.NoError(t, err)

	return &serviceFixture{service: service, store: store, validator: rejected, dir: dir, rulesPath: rulesPath}
}

var nomVille = []rules.Definition{
	{Name: "Nom", Type: rules.KindText, Pattern: `Nom\s*:\s*([^\n]+)`},
	{Name: "Ville", Type: rules.KindText, Pattern: `Ville\s*:\s*([^\n]+)`},
}

func TestNewService(t *testing.T) {
	store, err := rules.NewStore(nil)
	require.NoError(t, err)
	engine := extraction.NewEngine(stubForms{}, stubOCR{}, nil, false)

	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr string
	}{
		{name: "valid", cfg: ServiceConfig{Store: store, Engine: engine, Directory: t.TempDir()}},
		{name: "missing_store", cfg: ServiceConfig{Engine: engine, Directory: "/tmp"}, wantErr: "rule store is required"},
		{name: "missing_engine", cfg: ServiceConfig{Store: store, Directory: "/tmp"}, wantErr: "extraction engine is required"},
		{name: "missing_directory", cfg: ServiceConfig{Store: store, Engine: engine}, wantErr: "path validator"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := NewService(tt.cfg)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, &Validator{}, service.validator)
			assert.NotNil(t, service.logger)
		})
	}
}

func TestService_ImportDirectory(t *testing.T) {
	f := newServiceFixture(t, nomVille, "c.pdf")

	result, err := f.service.ImportDirectory(context.Background(), ImportRequest{Output: "members.csv"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Nom", "Ville", "SourcePDF"}, result.Columns)
	assert.Equal(t, 4, result.Documents)
	assert.Equal(t, 4, f.validator.calls)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, filepath.Join(f.service.Directory(), "members.csv"), result.Output)
	assert.Contains(t, result.Summary, "2 document(s) failed")

	types := map[string]string{}
	for _, failure := range result.Failures {
		types[failure.File] = failure.Type
	}
	assert.Equal(t, map[string]string{"c.pdf": "INVALID_DOCUMENT", "d.pdf": "OCR_ACQUISITION"}, types)

	data, err := os.ReadFile(result.Output)
	require.NoError(t, err)
	assert.Equal(t, "Nom,Ville,SourcePDF\nDupont,Lyon,a.pdf\nMartin,Paris,b.pdf\n", string(data))
}

func TestService_ImportDirectoryAppend(t *testing.T) {
	f := newServiceFixture(t, nomVille, "b.pdf", "c.pdf", "d.pdf")
	output := filepath.Join(t.TempDir(), "members.csv")

	for i := 0; i < 2; i++ {
		_, err := f.service.ImportDirectory(context.Background(), ImportRequest{Output: output, Append: true})
		require.NoError(t, err)
	}

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "Nom,Ville,SourcePDF\nDupont,Lyon,a.pdf\nDupont,Lyon,a.pdf\n", string(data))
}

func TestService_ImportDirectoryQueryWithoutOutput(t *testing.T) {
	f := newServiceFixture(t, nomVille)

	result, err := f.service.ImportDirectory(context.Background(), ImportRequest{Query: "b"})
	require.NoError(t, err)

	assert.Empty(t, result.Output)
	assert.Equal(t, 1, result.Documents)
	require.Len(t, result.Records, 1)
	assert.Equal(t, []string{"Martin", "Paris", "b.pdf"}, result.Records[0].Values())
	assert.Equal(t, "No errors", result.Summary)
}

func TestService_ImportDirectoryMalformedRule(t *testing.T) {
	f := newServiceFixture(t, []rules.Definition{{Name: "Nom", Type: rules.KindText, Pattern: "Nom[("}})

	result, err := f.service.ImportDirectory(context.Background(), ImportRequest{Output: "members.csv"})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeMalformedRule))
	assert.Contains(t, err.Error(), "Nom")
	assert.Zero(t, f.validator.calls, "no document may be validated with a broken rule set")

	_, statErr := os.Stat(filepath.Join(f.dir, "members.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestService_ImportDirectoryCancelled(t *testing.T) {
	f := newServiceFixture(t, nomVille)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.service.ImportDirectory(ctx, ImportRequest{Output: "members.csv"})
	require.Error(t, err)
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeCancelled))

	require.NotNil(t, result)
	assert.Zero(t, result.Imported)

	data, err := os.ReadFile(result.Output)
	require.NoError(t, err)
	assert.Equal(t, "Nom,Ville,SourcePDF\n", string(data))
}

func TestService_ImportDirectoryOutsideRoot(t *testing.T) {
	f := newServiceFixture(t, nomVille)

	_, err := f.service.ImportDirectory(context.Background(), ImportRequest{Directory: ".."})
	assert.ErrorContains(t, err, "security validation failed")
}

func TestService_ExtractFile(t *testing.T) {
	f := newServiceFixture(t, nomVille, "c.pdf")

	record, err := f.service.ExtractFile(context.Background(), ExtractFileRequest{Path: "a.pdf"})
	require.NoError(t, err)
	assert.Equal(t, extraction.MethodStructured, record.Method)
	assert.Equal(t, "a.pdf", record.Source)

	record, err = f.service.ExtractFile(context.Background(), ExtractFileRequest{Path: filepath.Join(f.dir, "b.pdf")})
	require.NoError(t, err)
	assert.Equal(t, extraction.MethodOCR, record.Method)

	_, err = f.service.ExtractFile(context.Background(), ExtractFileRequest{Path: "c.pdf"})
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeInvalidDocument))

	_, err = f.service.ExtractFile(context.Background(), ExtractFileRequest{Path: "../a.pdf"})
	assert.ErrorContains(t, err, "security validation failed")
}

func TestService_AddAndRemoveField(t *testing.T) {
	f := newServiceFixture(t, nomVille)

	result, err := f.service.AddField(AddFieldRequest{Name: "Nouveau", Type: "Checkbox", CheckedValue: "Oui"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Nom", "Ville", "NOUVEAU", "SourcePDF"}, result.Columns)

	added := result.Fields[2]
	assert.Equal(t, rules.KindCheckbox, added.Type)
	assert.Equal(t, "nouveau", added.StructuredKey)
	require.NotNil(t, added.CheckedValue)
	assert.Equal(t, "Oui", *added.CheckedValue)
	require.NotNil(t, added.UncheckedValue)
	assert.Equal(t, "0", *added.UncheckedValue)

	saved, err := rules.LoadFile(f.rulesPath)
	require.NoError(t, err)
	assert.Equal(t, result.Fields, saved)

	result, err = f.service.RemoveField("Ville")
	require.NoError(t, err)
	assert.Equal(t, []string{"Nom", "NOUVEAU", "SourcePDF"}, result.Columns)

	saved, err = rules.LoadFile(f.rulesPath)
	require.NoError(t, err)
	assert.Len(t, saved, 2)
	assert.Equal(t, []string{"Nom", "NOUVEAU"}, f.store.CurrentRules().Names())
}

func TestService_AddFieldErrors(t *testing.T) {
	f := newServiceFixture(t, nomVille)
	_, err := f.service.AddField(AddFieldRequest{Name: "Club", Type: rules.KindText})
	require.NoError(t, err)

	tests := []struct {
		name    string
		req     AddFieldRequest
		wantErr string
	}{
		{name: "empty_name", req: AddFieldRequest{Name: "  ", Type: rules.KindText}, wantErr: "field name cannot be empty"},
		{name: "unknown_type", req: AddFieldRequest{Name: "Age", Type: "date"}, wantErr: "unknown field type"},
		{name: "duplicate", req: AddFieldRequest{Name: "club", Type: rules.KindNumber}, wantErr: "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.AddField(tt.req)
			assert.ErrorContains(t, err, tt.wantErr)
			assert.Equal(t, []string{"Nom", "Ville", "CLUB"}, f.store.CurrentRules().Names())
		})
	}

	_, err = f.service.RemoveField("Telephone")
	assert.ErrorContains(t, err, "field not found")
}

func TestService_RuleEditDiscardedWhenSaveFails(t *testing.T) {
	f := newServiceFixture(t, nomVille)
	f.service.rulesPath = filepath.Join(t.TempDir(), "missing", "rules.json")

	_, err := f.service.AddField(AddFieldRequest{Name: "Club", Type: rules.KindText})
	assert.ErrorContains(t, err, "change discarded")
	assert.Equal(t, []string{"Nom", "Ville"}, f.store.CurrentRules().Names())

	_, err = f.service.RemoveField("Ville")
	assert.ErrorContains(t, err, "change discarded")
	assert.Equal(t, []string{"Nom", "Ville"}, f.store.CurrentRules().Names())

	_, statErr := os.Stat(f.service.rulesPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestService_ListFieldsWithoutRuleFile(t *testing.T) {
	store, err := rules.NewStore(rules.Default())
	require.NoError(t, err)

	service, err := NewService(ServiceConfig{
		Store:     store,
		Engine:    extraction.NewEngine(stubForms{}, stubOCR{}, nil, false),
		Directory: t.TempDir(),
	})
	require.NoError(t, err)

	_, err = service.AddField(AddFieldRequest{Name: "Club", Type: rules.KindText})
	require.NoError(t, err)

	result := service.ListFields()
	assert.Len(t, result.Fields, len(rules.Default())+1)
	assert.Equal(t, "SourcePDF", result.Columns[len(result.Columns)-1])
}
