package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/streamgen/pkg/jsonschema"
)

// ErrConfigNotFound is returned by LoadConfig when the file does not exist.
var ErrConfigNotFound = errors.New("config file not found")

var documentSchema = jsonschema.MustCompile(documentSchemaJSON)

// LoadConfig loads a configuration file on top of the defaults.
//
// The file format is determined by extension:
//   - .yaml, .yml -> YAML
//   - .json -> JSON
//
// The document is checked against the configuration schema before it is
// decoded, and the result is validated with Validate.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseConfig(data, path)
}

// ParseConfig parses configuration data on top of Default().
//
// The format is determined by the file extension in path, or defaults to YAML
// if the path is empty or has an unknown extension.
func ParseConfig(data []byte, path string) (*Config, error) {
	var (
		doc       interface{}
		unmarshal func([]byte, interface{}) error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		unmarshal = json.Unmarshal
	default:
		unmarshal = yaml.Unmarshal
	}

	if err := unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// An empty document means "all defaults".
	if doc != nil {
		if errs := documentSchema.ValidateValue(doc); len(errs) > 0 {
			return nil, fmt.Errorf("config does not match schema: %w", errs)
		}
	}

	cfg := Default()
	if err := unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// documentSchemaJSON describes the accepted shape of a config document.
// Semantic checks that need more than the shape live in Validate.
const documentSchemaJSON = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"producer": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"rate": { "type": "integer", "minimum": 0 }
			}
		},
		"stream": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"controller": { "type": "string", "minLength": 1 },
				"scope": { "type": "string", "minLength": 1 },
				"name": { "type": "string", "minLength": 1 },
				"partitions": { "type": "integer", "minimum": 1 },
				"replicationFactor": { "type": "integer", "minimum": 1 },
				"skipCreate": { "type": "boolean" }
			}
		},
		"sink": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"type": { "enum": ["kafka", "stdout", "discard"] },
				"requiredAcks": { "enum": ["none", "one", "all"] },
				"compression": { "enum": ["", "none", "gzip", "snappy", "lz4", "zstd"] },
				"writeTimeout": { "type": "string" }
			}
		},
		"metrics": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"enabled": { "type": "boolean" },
				"port": { "type": "integer", "minimum": 0, "maximum": 65535 },
				"path": { "type": "string", "pattern": "^/" },
				"namespace": { "type": "string", "pattern": "^[a-zA-Z_][a-zA-Z0-9_]*$" }
			}
		},
		"log": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"level": { "enum": ["trace", "debug", "info", "warn", "error", "disabled"] },
				"format": { "enum": ["auto", "console", "json"] }
			}
		},
		"control": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"stdin": { "type": "boolean" },
				"idleInterval": { "type": "string" }
			}
		}
	}
}`
