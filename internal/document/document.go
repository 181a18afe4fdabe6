// Package document defines the canonical AISP document tree consumed by the
// verifier and the compliance validator. Documents are produced upstream by a
// parser (or loaded from their YAML interchange form) and are read-only here.
package document

import "fmt"

// Document is a typed AISP specification: header, ordered blocks, metadata.
type Document struct {
	Header   Header   `yaml:"header" json:"header"`
	Metadata Metadata `yaml:"metadata,omitempty" json:"metadata"`
	Blocks   []Block  `yaml:"blocks" json:"blocks"`
}

// Header carries the document identity.
type Header struct {
	Version  string            `yaml:"version" json:"version"`
	Name     string            `yaml:"name" json:"name"`
	Date     string            `yaml:"date" json:"date"`
	Metadata map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// Metadata is document-level context.
type Metadata struct {
	Domain   string `yaml:"domain,omitempty" json:"domain,omitempty"`
	Protocol string `yaml:"protocol,omitempty" json:"protocol,omitempty"`
}

// BlockKind tags a block variant.
type BlockKind string

const (
	BlockMeta      BlockKind = "meta"
	BlockTypes     BlockKind = "types"
	BlockRules     BlockKind = "rules"
	BlockFunctions BlockKind = "functions"
	BlockEvidence  BlockKind = "evidence"
)

// Block is one typed section of a document. Only the field matching Kind is
// populated.
type Block struct {
	Kind      BlockKind            `yaml:"kind" json:"kind"`
	Entries   []string             `yaml:"entries,omitempty" json:"entries,omitempty"`
	Types     []TypeDefinition     `yaml:"types,omitempty" json:"types,omitempty"`
	Rules     []Rule               `yaml:"rules,omitempty" json:"rules,omitempty"`
	Functions []FunctionDefinition `yaml:"functions,omitempty" json:"functions,omitempty"`
	Evidence  *Evidence            `yaml:"evidence,omitempty" json:"evidence,omitempty"`
}

// TypeDefinition binds a name to a type expression.
type TypeDefinition struct {
	Name string         `yaml:"name" json:"name"`
	Type TypeExpression `yaml:"type" json:"type"`
}

// Rule is a named logical constraint in the document's rule language.
type Rule struct {
	Name       string `yaml:"name,omitempty" json:"name,omitempty"`
	Expression string `yaml:"expr" json:"expr"`
}

// FunctionDefinition is a declared function. Signature and Body are kept as
// source text; the verifier only needs the name today.
type FunctionDefinition struct {
	Name      string `yaml:"name" json:"name"`
	Signature string `yaml:"signature,omitempty" json:"signature,omitempty"`
	Body      string `yaml:"body,omitempty" json:"body,omitempty"`
}

// Evidence is the document's self-reported quality evidence.
type Evidence struct {
	Delta *float64 `yaml:"delta,omitempty" json:"delta,omitempty"`
	Phi   *uint64  `yaml:"phi,omitempty" json:"phi,omitempty"`
	Tau   string   `yaml:"tau,omitempty" json:"tau,omitempty"`
}

// TypeDefinitions returns every type definition across all types blocks, in
// document order.
func (d *Document) TypeDefinitions() []TypeDefinition {
	var defs []TypeDefinition
	for _, b := range d.Blocks {
		if b.Kind == BlockTypes {
			defs = append(defs, b.Types...)
		}
	}
	return defs
}

// Functions returns every function definition across all functions blocks.
func (d *Document) Functions() []FunctionDefinition {
	var fns []FunctionDefinition
	for _, b := range d.Blocks {
		if b.Kind == BlockFunctions {
			fns = append(fns, b.Functions...)
		}
	}
	return fns
}

// Rules returns every rule across all rules blocks.
func (d *Document) Rules() []Rule {
	var rules []Rule
	for _, b := range d.Blocks {
		if b.Kind == BlockRules {
			rules = append(rules, b.Rules...)
		}
	}
	return rules
}

// Evidence returns the first evidence block, or nil.
func (d *Document) Evidence() *Evidence {
	for _, b := range d.Blocks {
		if b.Kind == BlockEvidence && b.Evidence != nil {
			return b.Evidence
		}
	}
	return nil
}

// HasDeclarations reports whether the document declares any type or function.
func (d *Document) HasDeclarations() bool {
	return len(d.TypeDefinitions()) > 0 || len(d.Functions()) > 0
}

// Validate checks structural well-formedness: known block kinds, named
// definitions and no duplicate type or function names.
func (d *Document) Validate() error {
	typeNames := make(map[string]bool)
	fnNames := make(map[string]bool)
	for i, b := range d.Blocks {
		switch b.Kind {
		case BlockMeta, BlockRules:
		case BlockTypes:
			for _, def := range b.Types {
				if def.Name == "" {
					return fmt.Errorf("block %d: type definition without a name", i)
				}
				if typeNames[def.Name] {
					return fmt.Errorf("block %d: duplicate type %q", i, def.Name)
				}
				typeNames[def.Name] = true
			}
		case BlockFunctions:
			for _, fn := range b.Functions {
				if fn.Name == "" {
					return fmt.Errorf("block %d: function definition without a name", i)
				}
				if fnNames[fn.Name] {
					return fmt.Errorf("block %d: duplicate function %q", i, fn.Name)
				}
				fnNames[fn.Name] = true
			}
		case BlockEvidence:
			if b.Evidence == nil {
				return fmt.Errorf("block %d: evidence block without evidence", i)
			}
		default:
			return fmt.Errorf("block %d: unknown block kind %q", i, b.Kind)
		}
	}
	return nil
}
