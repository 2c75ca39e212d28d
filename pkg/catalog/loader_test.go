package catalog

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestLoadEmbedded(t *testing.T) {
	loader := NewLoader()

	reg, err := loader.LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded failed: %v", err)
	}

	if reg.Len() != 13 {
		t.Errorf("Len = %d, want 13", reg.Len())
	}
	wantCategories := []string{"datasource", "embedding", "llm", "vectordb"}
	if got := reg.Categories(); !reflect.DeepEqual(got, wantCategories) {
		t.Errorf("Categories = %v, want %v", got, wantCategories)
	}

	sqlite, ok := reg.Lookup("datasource", "sqlite")
	if !ok {
		t.Fatal("datasource/sqlite missing")
	}
	if sqlite.Name != "SQLite" {
		t.Errorf("Name = %s, want SQLite", sqlite.Name)
	}
	if len(sqlite.RequiredFields) != 3 {
		t.Errorf("RequiredFields = %v, want 3 entries", sqlite.RequiredFields)
	}
	if sqlite.Inputs != 0 || sqlite.Outputs != 1 {
		t.Errorf("ports = %d/%d, want 0/1", sqlite.Inputs, sqlite.Outputs)
	}
	if sqlite.DefaultConfig["text_column"] != "content" {
		t.Errorf("DefaultConfig[text_column] = %v", sqlite.DefaultConfig["text_column"])
	}

	// Port counts fall back to the schema default of one where a file
	// does not state them.
	chroma, ok := reg.Lookup("vectordb", "chroma")
	if !ok {
		t.Fatal("vectordb/chroma missing")
	}
	if chroma.Inputs != 1 || chroma.Outputs != 1 {
		t.Errorf("chroma ports = %d/%d, want 1/1", chroma.Inputs, chroma.Outputs)
	}

	anthropic, ok := reg.Lookup("llm", "anthropic")
	if !ok {
		t.Fatal("llm/anthropic missing")
	}
	if anthropic.Inputs != 1 || anthropic.Outputs != 0 {
		t.Errorf("anthropic ports = %d/%d, want 1/0", anthropic.Inputs, anthropic.Outputs)
	}

	// Integer defaults decode as integers, floats as floats
	local, _ := reg.Lookup("embedding", "local")
	if dim, ok := local.DefaultConfig["embedding_dimension"].(int64); !ok || dim != 384 {
		t.Errorf("embedding_dimension = %v (%T), want int64 384",
			local.DefaultConfig["embedding_dimension"], local.DefaultConfig["embedding_dimension"])
	}
	openai, _ := reg.Lookup("llm", "openai")
	if temp, ok := openai.DefaultConfig["temperature"].(float64); !ok || temp != 0.7 {
		t.Errorf("temperature = %v (%T), want float64 0.7",
			openai.DefaultConfig["temperature"], openai.DefaultConfig["temperature"])
	}
}

func TestLoadEmbeddedEveryEntryCreatable(t *testing.T) {
	loader := NewLoader()
	reg, err := loader.LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded failed: %v", err)
	}

	for _, def := range reg.Definitions() {
		if def.Name == "" {
			t.Errorf("%s/%s has no name", def.Category, def.Subtype)
		}
		if len(def.RequiredFields) == 0 {
			continue
		}
		// At least one required field must start unsatisfied, so a
		// fresh node of this type begins unconfigured.
		satisfied := 0
		for _, field := range def.RequiredFields {
			v, ok := def.DefaultConfig[field]
			if !ok || v == nil {
				continue
			}
			if s, isString := v.(string); isString && s == "" {
				continue
			}
			satisfied++
		}
		if satisfied == len(def.RequiredFields) {
			t.Errorf("%s/%s defaults already satisfy every required field", def.Category, def.Subtype)
		}
	}
}

func TestLoadEmbeddedCaches(t *testing.T) {
	loader := NewLoader()

	first, err := loader.LoadEmbedded()
	if err != nil {
		t.Fatalf("first load failed: %v", err)
	}
	if loader.cache.Size() != 1 {
		t.Errorf("cache size = %d after first load, want 1", loader.cache.Size())
	}

	second, err := loader.LoadEmbedded()
	if err != nil {
		t.Fatalf("second load failed: %v", err)
	}
	if loader.cache.Size() != 1 {
		t.Errorf("cache size = %d after second load, want 1", loader.cache.Size())
	}
	if !reflect.DeepEqual(first.Definitions(), second.Definitions()) {
		t.Error("cached load returned different definitions")
	}
}

func TestLoadPath(t *testing.T) {
	dir := t.TempDir()

	schema := `package catalog

definitions: [string]: {
	inputs:  int & >=0 | *1
	outputs: int & >=0 | *1
}
`
	custom := `package catalog

definitions: {
	"datasource/gdrive": {
		name:     "Google Drive"
		category: "datasource"
		subtype:  "gdrive"
		defaultConfig: {
			folder_id: ""
		}
		requiredFields: ["folder_id"]
		inputs:  0
		outputs: 1
	}

	"llm/groq": {
		name:     "Groq"
		category: "llm"
		subtype:  "groq"
		defaultConfig: {
			api_key: ""
		}
		requiredFields: ["api_key"]
		outputs: 0
	}
}
`
	for name, content := range map[string]string{"schema.cue": schema, "custom.cue": custom} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	loader := NewLoader()
	reg, err := loader.LoadPath(dir)
	if err != nil {
		t.Fatalf("LoadPath failed: %v", err)
	}

	if reg.Len() != 2 {
		t.Errorf("Len = %d, want 2", reg.Len())
	}
	gdrive, ok := reg.Lookup("datasource", "gdrive")
	if !ok {
		t.Fatal("datasource/gdrive missing")
	}
	if gdrive.Inputs != 0 || gdrive.Outputs != 1 {
		t.Errorf("gdrive ports = %d/%d, want 0/1", gdrive.Inputs, gdrive.Outputs)
	}
	groq, ok := reg.Lookup("llm", "groq")
	if !ok {
		t.Fatal("llm/groq missing")
	}
	// inputs left unstated, filled by the schema default
	if groq.Inputs != 1 || groq.Outputs != 0 {
		t.Errorf("groq ports = %d/%d, want 1/0", groq.Inputs, groq.Outputs)
	}
}

func TestLoadPathNoFiles(t *testing.T) {
	loader := NewLoader()
	_, err := loader.LoadPath(t.TempDir())
	if err == nil {
		t.Fatal("expected error for directory without .cue files")
	}
	if !strings.Contains(err.Error(), "no .cue files") {
		t.Errorf("error = %v, want mention of missing .cue files", err)
	}
}

func TestLoadInline(t *testing.T) {
	src := `definitions: {
	"vectordb/qdrant": {
		name:     "Qdrant"
		category: "vectordb"
		subtype:  "qdrant"
		defaultConfig: {
			url:             "http://localhost:6333"
			collection_name: ""
		}
		requiredFields: ["collection_name"]
	}
}
`
	loader := NewLoader()
	reg, err := loader.LoadInline(src)
	if err != nil {
		t.Fatalf("LoadInline failed: %v", err)
	}

	qdrant, ok := reg.Lookup("vectordb", "qdrant")
	if !ok {
		t.Fatal("vectordb/qdrant missing")
	}
	if qdrant.Name != "Qdrant" {
		t.Errorf("Name = %s, want Qdrant", qdrant.Name)
	}
	// The builtin schema supplies the port defaults
	if qdrant.Inputs != 1 || qdrant.Outputs != 1 {
		t.Errorf("ports = %d/%d, want 1/1", qdrant.Inputs, qdrant.Outputs)
	}
}

func TestLoadInlineInvalid(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty source", ""},
		{"syntax error", `definitions: {`},
		{
			"category outside the vocabulary",
			`definitions: {
	"reranker/cohere": {
		name:     "Cohere Rerank"
		category: "reranker"
		subtype:  "cohere"
	}
}
`,
		},
		{
			"incomplete entry",
			`definitions: {
	"llm/mistral": {
		category: "llm"
		subtype:  "mistral"
	}
}
`,
		},
		{
			"key does not match category and subtype",
			`definitions: {
	"llm/alpha": {
		name:     "Alpha"
		category: "llm"
		subtype:  "beta"
	}
}
`,
		},
	}

	loader := NewLoader()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := loader.LoadInline(tt.src); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
