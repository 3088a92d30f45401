package kometa

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidatorAcceptsWellFormedDocument(t *testing.T) {
	v, err := NewValidator("")
	if err != nil {
		t.Fatalf("NewValidator() error = %v", err)
	}

	doc, err := Parse("t.yml", []byte(`metadata:
  100:
    title: Show
    url_poster: https://api.mediux.pro/assets/abc
    seasons:
      1:
        url_poster: https://api.mediux.pro/assets/def
`))
	if err != nil {
		t.Fatal(err)
	}

	if err := v.Validate(doc); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidatorRejectsWrongTypes(t *testing.T) {
	v, err := NewValidator("")
	if err != nil {
		t.Fatalf("NewValidator() error = %v", err)
	}

	doc, err := Parse("t.yml", []byte("metadata:\n  100:\n    url_poster: 12345\n"))
	if err != nil {
		t.Fatal(err)
	}

	if err := v.Validate(doc); err == nil {
		t.Error("Validate(url_poster: int) error = nil, want schema violation")
	}
}

func TestValidatorFromDiskOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")
	schema := `{"type": "object", "required": ["metadata"]}`
	if err := os.WriteFile(path, []byte(schema), 0644); err != nil {
		t.Fatal(err)
	}

	v, err := NewValidator(path)
	if err != nil {
		t.Fatalf("NewValidator(%q) error = %v", path, err)
	}

	doc, err := Parse("t.yml", []byte("other: 1\n"))
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Validate(doc); err == nil {
		t.Error("Validate(missing metadata) error = nil, want required violation")
	}
}

func TestValidatorMissingSchemaFile(t *testing.T) {
	if _, err := NewValidator(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("NewValidator(missing file) error = nil, want error")
	}
}
