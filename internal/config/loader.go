package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/joho/godotenv"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"gopkg.in/yaml.v2"

	"grimm.is/firegate/internal/brand"
)

// Load reads, completes and validates the config file at path.
func Load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load, except that a missing file at the
// default location yields the defaults (plus environment overrides).
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		path = brand.DefaultConfigPath()
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && path == brand.DefaultConfigPath() {
		loadDotEnv(filepath.Dir(path))
		cfg := &Config{}
		if err := ApplyEnv(cfg); err != nil {
			return nil, err
		}
		cfg.ApplyDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return Load(path)
}

// LoadFile reads a config file without validating it. A .env file in the
// same directory is loaded first, environment overrides and defaults are
// applied last.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	loadDotEnv(filepath.Dir(path))

	cfg, err := LoadBytes(data, path)
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// LoadBytes decodes data using the format implied by filename's extension.
// Unknown extensions are tried as HCL, then JSON.
func LoadBytes(data []byte, filename string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".hcl":
		return LoadHCL(data, filename)
	case ".json":
		return LoadJSON(data)
	case ".yaml", ".yml":
		return LoadYAML(data)
	default:
		cfg, err := LoadHCL(data, filename)
		if err != nil {
			return LoadJSON(data)
		}
		return cfg, nil
	}
}

// LoadHCL decodes an HCL document. env("NAME") is available in expressions.
func LoadHCL(data []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("HCL parse error: %s", diags.Error())
	}

	var cfg Config
	if diags := gohcl.DecodeBody(file.Body, evalContext(), &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("HCL decode error: %s", diags.Error())
	}
	return &cfg, nil
}

// LoadJSON decodes a JSON document. Unknown fields are rejected.
func LoadJSON(data []byte) (*Config, error) {
	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("JSON parse error: %w", err)
	}
	return &cfg, nil
}

// LoadYAML decodes a YAML document. Unknown fields are rejected.
func LoadYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	return &cfg, nil
}

// EnvVar returns the full name of an override variable, e.g. FIREGATE_ZONE.
func EnvVar(name string) string {
	return brand.ConfigEnvPrefix + "_" + name
}

// ApplyEnv applies FIREGATE_* overrides on top of the file values.
func ApplyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv(EnvVar("SECRET")); ok {
		cfg.Secret = v
	}
	if v, ok := os.LookupEnv(EnvVar("ZONE")); ok {
		cfg.Zone = v
	}
	if v, ok := os.LookupEnv(EnvVar("FOLDER")); ok {
		cfg.Folder = v
	}
	if v, ok := os.LookupEnv(EnvVar("PORT")); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvVar("PORT"), err)
		}
		cfg.Port = port
	}
	return nil
}

// loadDotEnv loads dir/.env when present. Variables already set win.
func loadDotEnv(dir string) {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return
	}
	_ = godotenv.Load(path)
}

// envFunc implements env("NAME") for HCL expressions.
var envFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "name", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		return cty.StringVal(os.Getenv(args[0].AsString())), nil
	},
})

func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{
			"env": envFunc,
		},
	}
}
