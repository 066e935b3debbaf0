package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/tracking-recovery/internal/trackingid"
)

// SettingsSchema constrains the JSON settings file.
var SettingsSchema = map[string]any{
	"$schema":              "http://json-schema.org/draft-07/schema#",
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"prefix": map[string]any{
			"type":    "string",
			"pattern": "^[A-Za-z0-9]{1,16}$",
		},
		"dateDigits": map[string]any{
			"type": "integer",
			"enum": []any{6, 8},
		},
	},
}

// FileLoader reads a JSON settings file on every Load.
type FileLoader struct {
	Path string

	once   sync.Once
	schema *jsonschema.Schema
	err    error
}

func NewFileLoader(path string) *FileLoader {
	return &FileLoader{Path: path}
}

func (f *FileLoader) Load(ctx context.Context) (trackingid.Config, error) {
	if err := ctx.Err(); err != nil {
		return trackingid.Config{}, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return trackingid.Config{}, fmt.Errorf("read settings: %w", err)
	}
	return f.Parse(data)
}

// Parse validates data against SettingsSchema and decodes it.
func (f *FileLoader) Parse(data []byte) (trackingid.Config, error) {
	schema, err := f.compiled()
	if err != nil {
		return trackingid.Config{}, err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return trackingid.Config{}, invalid("settings file is not valid JSON", err)
	}
	if err := schema.Validate(v); err != nil {
		return trackingid.Config{}, invalid("settings file does not match schema", err)
	}
	var cfg trackingid.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return trackingid.Config{}, invalid("decode settings", err)
	}
	return cfg.Normalized(), nil
}

func (f *FileLoader) compiled() (*jsonschema.Schema, error) {
	f.once.Do(func() {
		b, err := json.Marshal(SettingsSchema)
		if err != nil {
			f.err = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("settings.json", bytes.NewReader(b)); err != nil {
			f.err = fmt.Errorf("add schema: %w", err)
			return
		}
		f.schema, f.err = compiler.Compile("settings.json")
	})
	return f.schema, f.err
}
