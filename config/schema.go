package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

var (
	//go:embed schema/v1.json
	schemaV1Source string
	//go:embed schema/v2.json
	schemaV2Source string

	schemaOnce sync.Once
	schemas    map[SchemaVersion]*jsonschema.Schema
	schemaErr  error
)

func compileSchemas() {
	schemas = make(map[SchemaVersion]*jsonschema.Schema, 2)
	for version, src := range map[SchemaVersion]string{SchemaV1: schemaV1Source, SchemaV2: schemaV2Source} {
		name := fmt.Sprintf("lumos-config-v%d.json", version)
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
			schemaErr = errors.Wrapf(err, "can't load schema %s", name)
			return
		}
		schema, err := compiler.Compile(name)
		if err != nil {
			schemaErr = errors.Wrapf(err, "can't compile schema %s", name)
			return
		}
		schemas[version] = schema
	}
}

// Schema returns the JSON schema source of a document version.
func Schema(version SchemaVersion) (string, error) {
	switch version {
	case SchemaV1:
		return schemaV1Source, nil
	case SchemaV2:
		return schemaV2Source, nil
	}
	return "", fmt.Errorf("unsupported SchemaVersion %d", version)
}

// checkDocument finds the schema version of a raw YAML document and checks
// the document against that version's schema, before anything is decoded
// into a Config.
func checkDocument(data []byte) (SchemaVersion, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return 0, errors.Wrap(err, "can't parse config")
	}
	if doc == nil {
		return SchemaCurrent, nil
	}

	// The schema library works on JSON values.
	raw, err := json.Marshal(doc)
	if err != nil {
		return 0, errors.Wrap(err, "config must be a mapping with string keys")
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return 0, errors.Wrap(err, "can't convert config")
	}
	root, ok := generic.(map[string]any)
	if !ok {
		return 0, fmt.Errorf("config must be a mapping, got %T", generic)
	}

	version := SchemaCurrent
	if v, ok := root["SchemaVersion"]; ok {
		f, isNumber := v.(float64)
		if !isNumber || f != math.Trunc(f) || !SchemaVersion(f).Valid() {
			return 0, fmt.Errorf("unsupported SchemaVersion %v", v)
		}
		version = SchemaVersion(f)
	}

	schemaOnce.Do(compileSchemas)
	if schemaErr != nil {
		return 0, schemaErr
	}
	if err := schemas[version].Validate(generic); err != nil {
		return 0, errors.Wrapf(err, "config does not match schema version %d", version)
	}
	return version, nil
}
