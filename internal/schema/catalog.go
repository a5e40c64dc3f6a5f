// Package schema loads the column descriptors handed to the SQL model.
package schema

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

type Source string

const (
	SourceDescriptive Source = "descriptive"
	SourceForecast    Source = "forecast"
	SourceMarket      Source = "market"
	SourceSemantic    Source = "semantic"
)

// Sources lists every source in prompt order.
var Sources = []Source{SourceDescriptive, SourceForecast, SourceMarket, SourceSemantic}

var Files = map[Source]string{
	SourceDescriptive: "monthly_service_kpis.yaml",
	SourceForecast:    "monthly_service_kpis_forecasts.yaml",
	SourceMarket:      "market_data_schema.yaml",
	SourceSemantic:    "semantic_model_business.yaml",
}

//go:embed defaults/*.yaml
var defaultFS embed.FS

// Catalog is built once at startup and only read afterwards. Documents
// returned by Document must not be mutated.
type Catalog struct {
	docs map[Source]any
}

type Column struct {
	Source      Source `json:"source"`
	Table       string `json:"table"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

func New(docs map[Source]any) (*Catalog, error) {
	out := make(map[Source]any, len(Sources))
	for _, source := range Sources {
		doc, ok := docs[source]
		if !ok || doc == nil {
			return nil, fmt.Errorf("schema document %q is required", source)
		}
		out[source] = doc
	}
	return &Catalog{docs: out}, nil
}

func Load(fsys fs.FS) (*Catalog, error) {
	docs := make(map[Source]any, len(Sources))
	for _, source := range Sources {
		raw, err := fs.ReadFile(fsys, Files[source])
		if err != nil {
			return nil, fmt.Errorf("read %s schema: %w", source, err)
		}
		var doc any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode %s schema: %w", source, err)
		}
		docs[source] = doc
	}
	return New(docs)
}

func LoadDir(dir string) (*Catalog, error) {
	return Load(os.DirFS(dir))
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	sub, err := fs.Sub(defaultFS, "defaults")
	if err != nil {
		return nil, err
	}
	return Load(sub)
}

func (c *Catalog) Document(source Source) any {
	if c == nil {
		return nil
	}
	return c.docs[source]
}

// JSON renders one document as two-space indented JSON.
func (c *Catalog) JSON(source Source) (string, error) {
	if c == nil {
		return "", fmt.Errorf("schema catalog is nil")
	}
	doc, ok := c.docs[source]
	if !ok {
		return "", fmt.Errorf("unknown schema source %q", source)
	}
	encoded, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s schema: %w", source, err)
	}
	return string(encoded), nil
}

// Documents returns every document keyed by source name, for API output.
func (c *Catalog) Documents() map[string]any {
	out := make(map[string]any, len(c.docs))
	for source, doc := range c.docs {
		out[string(source)] = doc
	}
	return out
}

// Columns flattens the documents that follow the table/columns layout.
// Documents with another shape contribute nothing.
func (c *Catalog) Columns() []Column {
	var out []Column
	for _, source := range Sources {
		tables, ok := c.docs[source].(map[string]any)
		if !ok {
			continue
		}
		names := make([]string, 0, len(tables))
		for name := range tables {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			out = append(out, tableColumns(source, name, tables[name])...)
		}
	}
	return out
}

func tableColumns(source Source, key string, raw any) []Column {
	table, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	tableName, _ := table["table"].(string)
	if tableName == "" {
		tableName = key
	}
	entries, _ := table["columns"].([]any)
	out := make([]Column, 0, len(entries))
	for _, entry := range entries {
		col, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		name, _ := col["name"].(string)
		if name == "" {
			continue
		}
		typ, _ := col["type"].(string)
		desc, _ := col["description"].(string)
		out = append(out, Column{Source: source, Table: tableName, Name: name, Type: typ, Description: desc})
	}
	return out
}
