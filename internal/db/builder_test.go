package db

import (
	"strings"
	"testing"
)

func TestIndexBuilder_Simple(t *testing.T) {
	idx := NewIndex("test-idx").
		Prefix("doc:").
		Tag("category").
		Numeric("price").
		MustBuild()

	if err := idx.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.Name != "test-idx" {
		t.Errorf("name = %q, want test-idx", idx.Name)
	}
	if idx.StorageType != StorageHash {
		t.Errorf("storage = %q, want HASH", idx.StorageType)
	}
	if len(idx.Fields) != 2 {
		t.Fatalf("fields count = %d, want 2", len(idx.Fields))
	}
	if idx.Fields[0].Name != "category" || idx.Fields[0].Type != IndexFieldTag {
		t.Errorf("field[0] = %+v, want category TAG", idx.Fields[0])
	}
	if idx.Fields[1].Name != "price" || idx.Fields[1].Type != IndexFieldNumeric {
		t.Errorf("field[1] = %+v, want price NUMERIC", idx.Fields[1])
	}
}

func TestIndexBuilder_JSON(t *testing.T) {
	idx := NewIndex("json-idx").
		OnJSON().
		Prefix("obs:{json-idx}:doc:").
		Text("$.notebook.name", As("notebook_name")).
		MustBuild()

	if idx.StorageType != StorageJSON {
		t.Errorf("storage = %q, want JSON", idx.StorageType)
	}
	if idx.Fields[0].Alias != "notebook_name" {
		t.Errorf("alias = %q, want notebook_name", idx.Fields[0].Alias)
	}
}

func TestIndexBuilder_FieldOptions(t *testing.T) {
	idx := NewIndex("opt-idx").
		Prefix("t:").
		Tag("$.type", As("type"), IndexMissing()).
		Tag("$.tags", Separator("|"), CaseSensitive()).
		Numeric("$.ts", As("ts"), Sortable()).
		MustBuild()

	if !idx.Fields[0].IndexMissing {
		t.Error("expected IndexMissing on type")
	}
	f := idx.Fields[1]
	if f.TagSeparator != "|" {
		t.Errorf("separator = %q, want |", f.TagSeparator)
	}
	if !f.TagCaseSensitive {
		t.Error("expected TagCaseSensitive=true")
	}
	if !idx.Fields[2].Sortable {
		t.Error("expected Sortable on ts")
	}
}

func TestIndexBuilder_MultiplePrefixes(t *testing.T) {
	idx := NewIndex("multi-idx").
		Prefix("a:", "b:", "c:").
		Tag("x").
		MustBuild()

	if len(idx.Prefixes) != 3 {
		t.Errorf("prefix count = %d, want 3", len(idx.Prefixes))
	}
}

func TestIndexBuilder_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		builder func() (*IndexDefinition, error)
		wantErr string
	}{
		{
			name: "empty name",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("").Tag("x").Build()
			},
			wantErr: "index name is required",
		},
		{
			name: "no fields",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("idx").Build()
			},
			wantErr: "at least one field",
		},
		{
			name: "invalid characters",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("idx with spaces").Tag("x").Build()
			},
			wantErr: "invalid characters",
		},
		{
			name: "invalid alias",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("idx").Tag("$.a.b", As("a.b")).Build()
			},
			wantErr: "alias contains invalid characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got error %q, want containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestIndexDefinition_String(t *testing.T) {
	idx := NewIndex("my-idx").
		OnJSON().
		Prefix("doc:").
		Tag("$.type", As("type"), IndexMissing()).
		Numeric("$.ts", As("ts"), Sortable()).
		MustBuild()

	s := idx.String()
	want := "FT.CREATE my-idx ON JSON PREFIX doc: SCHEMA $.type AS type TAG INDEXMISSING $.ts AS ts NUMERIC SORTABLE"
	if s != want {
		t.Errorf("String() = %q, want %q", s, want)
	}
}

func TestIndexBuilder_DuplicateFields(t *testing.T) {
	idx := &IndexDefinition{
		Name: "dup-idx",
		Fields: []IndexField{
			{Name: "field1", Type: IndexFieldTag},
			{Name: "field1", Type: IndexFieldNumeric},
		},
	}

	if err := idx.Validate(); err == nil {
		t.Fatal("expected error for duplicate fields")
	}
}

func TestIndexBuilder_DuplicateAlias(t *testing.T) {
	_, err := NewIndex("dup-alias").
		Tag("$.a", As("x")).
		Tag("$.b", As("x")).
		Build()
	if err == nil {
		t.Fatal("expected error for duplicate alias")
	}
}
