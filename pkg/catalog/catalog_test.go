package catalog

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestParseDefinition(t *testing.T) {
	data := []byte(`{
		"name": "Pinecone",
		"icon": "cloud",
		"category": "vectordb",
		"subtype": "pinecone",
		"description": "Managed vector index.",
		"defaultConfig": {
			"api_key": "",
			"top_k": 5,
			"score_threshold": 0.25,
			"namespaces": ["default"]
		},
		"requiredFields": ["api_key"],
		"inputs": 1,
		"outputs": 1
	}`)

	def, err := parseDefinition(data)
	if err != nil {
		t.Fatalf("parseDefinition failed: %v", err)
	}

	if def.Name != "Pinecone" || def.Icon != "cloud" {
		t.Errorf("name/icon = %s/%s", def.Name, def.Icon)
	}
	if def.Category != "vectordb" || def.Subtype != "pinecone" {
		t.Errorf("category/subtype = %s/%s", def.Category, def.Subtype)
	}
	if def.Inputs != 1 || def.Outputs != 1 {
		t.Errorf("ports = %d/%d", def.Inputs, def.Outputs)
	}
	if !reflect.DeepEqual(def.RequiredFields, []string{"api_key"}) {
		t.Errorf("RequiredFields = %v", def.RequiredFields)
	}

	if v, ok := def.DefaultConfig["top_k"].(int64); !ok || v != 5 {
		t.Errorf("top_k = %v (%T), want int64 5", def.DefaultConfig["top_k"], def.DefaultConfig["top_k"])
	}
	if v, ok := def.DefaultConfig["score_threshold"].(float64); !ok || v != 0.25 {
		t.Errorf("score_threshold = %v (%T), want float64 0.25",
			def.DefaultConfig["score_threshold"], def.DefaultConfig["score_threshold"])
	}
	if v, ok := def.DefaultConfig["namespaces"].([]any); !ok || v[0] != "default" {
		t.Errorf("namespaces = %v (%T)", def.DefaultConfig["namespaces"], def.DefaultConfig["namespaces"])
	}
}

func TestConvertNumbers(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"integer", json.Number("42"), int64(42)},
		{"negative integer", json.Number("-7"), int64(-7)},
		{"float", json.Number("0.5"), float64(0.5)},
		{"string passthrough", "hello", "hello"},
		{"bool passthrough", true, true},
		{
			"nested map",
			map[string]any{"port": json.Number("5432"), "host": "localhost"},
			map[string]any{"port": int64(5432), "host": "localhost"},
		},
		{
			"nested list",
			[]any{json.Number("1"), json.Number("2.5")},
			[]any{int64(1), float64(2.5)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := convertNumbers(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("convertNumbers(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
