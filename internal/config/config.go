// Package config loads the exprparse configuration file.
//
// The file may be YAML (.yaml, .yml) or TOML (.toml). Keys that are absent
// keep their defaults; unknown keys are rejected.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/opal-lang/exprparse/core/astfmt/formatter"
	"github.com/opal-lang/exprparse/runtime/parser"
	"github.com/opal-lang/exprparse/runtime/validation"
)

// Output formats accepted by Output.Format.
const (
	FormatSExpr = "sexpr"
	FormatTree  = "tree"
	FormatJSON  = "json"
	FormatCBOR  = "cbor"
)

// Formats lists every output format.
var Formats = []string{FormatSExpr, FormatTree, FormatJSON, FormatCBOR}

// ErrUnsupportedFile is returned for config files that are neither YAML nor TOML.
var ErrUnsupportedFile = errors.New("unsupported config file type")

// Config is the whole configuration file.
type Config struct {
	Output  Output  `yaml:"output" toml:"output"`
	Parser  Parser  `yaml:"parser" toml:"parser"`
	Symbols Symbols `yaml:"symbols" toml:"symbols"`
}

// Output controls how results are printed.
type Output struct {
	Format string `yaml:"format" toml:"format"` // sexpr, tree, json or cbor
	Color  string `yaml:"color" toml:"color"`   // auto, always or never
}

// Parser selects parser telemetry and tracing.
type Parser struct {
	Telemetry string `yaml:"telemetry" toml:"telemetry"` // off, basic or timing
	Debug     string `yaml:"debug" toml:"debug"`         // off, paths or detailed
}

// Symbols is the table used by the check command. Arity -1 means variadic.
type Symbols struct {
	Functions map[string]int `yaml:"functions" toml:"functions"`
	Variables []string       `yaml:"variables" toml:"variables"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Output: Output{
			Format: FormatSExpr,
			Color:  "auto",
		},
		Parser: Parser{
			Telemetry: "off",
			Debug:     "off",
		},
	}
}

// Load reads the configuration at path over the defaults. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = decodeYAML(content, cfg)
	case ".toml":
		err = decodeTOML(content, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFile, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func decodeYAML(content []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func decodeTOML(content []byte, cfg *Config) error {
	md, err := toml.Decode(string(content), cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var err error
	if !contains(Formats, c.Output.Format) {
		err = multierr.Append(err, fmt.Errorf("output.format: %q is not one of %s", c.Output.Format, strings.Join(Formats, ", ")))
	}
	if !contains([]string{"auto", "always", "never"}, c.Output.Color) {
		err = multierr.Append(err, fmt.Errorf("output.color: %q is not one of auto, always, never", c.Output.Color))
	}
	if !contains([]string{"off", "basic", "timing"}, c.Parser.Telemetry) {
		err = multierr.Append(err, fmt.Errorf("parser.telemetry: %q is not one of off, basic, timing", c.Parser.Telemetry))
	}
	if !contains([]string{"off", "paths", "detailed"}, c.Parser.Debug) {
		err = multierr.Append(err, fmt.Errorf("parser.debug: %q is not one of off, paths, detailed", c.Parser.Debug))
	}

	names := make([]string, 0, len(c.Symbols.Functions))
	for name := range c.Symbols.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if arity := c.Symbols.Functions[name]; arity < validation.Variadic {
			err = multierr.Append(err, fmt.Errorf("symbols.functions.%s: arity %d is below -1", name, arity))
		}
	}
	return err
}

// ParserOpts translates the parser section into parser options.
func (c *Config) ParserOpts() []parser.ParserOpt {
	var opts []parser.ParserOpt
	switch c.Parser.Telemetry {
	case "basic":
		opts = append(opts, parser.WithTelemetryBasic())
	case "timing":
		opts = append(opts, parser.WithTelemetryTiming())
	}
	switch c.Parser.Debug {
	case "paths":
		opts = append(opts, parser.WithDebugPaths())
	case "detailed":
		opts = append(opts, parser.WithDebugDetailed())
	}
	return opts
}

// ValidationSymbols returns the symbol table for validation.Check.
func (c *Config) ValidationSymbols() validation.Symbols {
	return validation.Symbols{
		Functions: c.Symbols.Functions,
		Variables: c.Symbols.Variables,
	}
}

// UseColor resolves output.color against the --no-color flag.
func (c *Config) UseColor(noColorFlag bool) bool {
	switch {
	case noColorFlag || c.Output.Color == "never":
		return false
	case c.Output.Color == "always":
		return true
	default:
		return formatter.ShouldUseColor(false)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
