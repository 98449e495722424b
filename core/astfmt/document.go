package astfmt

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/mod/semver"

	"github.com/opal-lang/exprparse/core/ast"
	"github.com/opal-lang/exprparse/core/invariant"
)

// DocumentVersion is written into every encoded document.
const DocumentVersion = "v1.0.0"

//go:embed schema/document.json
var documentSchema string

// Document is the JSON form of a parsed expression.
type Document struct {
	Version string        `json:"version"`
	Source  string        `json:"source,omitempty"`
	Tree    CanonicalNode `json:"tree"`
}

// NewDocument builds a document for a parsed tree. source is the input text
// and may be empty.
func NewDocument(source string, n ast.Node) (*Document, error) {
	c, err := Canonicalize(n)
	if err != nil {
		return nil, err
	}
	return &Document{Version: DocumentVersion, Source: source, Tree: c.Tree}, nil
}

// Node rebuilds the tree held by the document.
func (d *Document) Node() (ast.Node, error) {
	return d.Tree.Node()
}

// WriteJSON writes the document as indented JSON followed by a newline.
func (d *Document) WriteJSON(w io.Writer) error {
	invariant.NotNil(w, "writer")

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// DecodeDocument validates data against the document schema and decodes it.
func DecodeDocument(data []byte) (*Document, error) {
	if err := ValidateDocument(data); err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if semver.Major(doc.Version) != semver.Major(DocumentVersion) {
		return nil, fmt.Errorf("unsupported document version %s (want %s)", doc.Version, semver.Major(DocumentVersion))
	}
	return &doc, nil
}

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

// ValidateDocument checks a JSON document against the embedded schema.
// The returned error is a *jsonschema.ValidationError when the JSON is
// well formed but does not conform.
func ValidateDocument(data []byte) error {
	schema, err := loadSchema()
	if err != nil {
		return err
	}

	// json.Number keeps naturals above 2^53 exact for the range check.
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("invalid JSON: trailing data after document")
	}
	return schema.Validate(v)
}

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = compileSchema()
	})
	return compiledSchema, schemaErr
}

func compileSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true

	if compiler.Formats == nil {
		compiler.Formats = make(map[string]func(interface{}) bool)
	}
	compiler.Formats["semver"] = isSemver

	url := "schema://document.json"
	if err := compiler.AddResource(url, strings.NewReader(documentSchema)); err != nil {
		return nil, fmt.Errorf("add document schema: %w", err)
	}
	return compiler.Compile(url)
}

func isSemver(v interface{}) bool {
	s, ok := v.(string)
	if !ok {
		return true // Type validation happens separately
	}
	return semver.IsValid(s)
}
