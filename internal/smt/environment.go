package smt

import (
	"fmt"
	"sort"

	"aispverify/internal/document"
)

// Fixed sorts declared in every run.
const (
	SortVector = "Vector"
	SortSignal = "Signal"
	// SortAny is the placeholder domain and codomain of document functions
	// until signatures are parsed.
	SortAny = "Any"
)

// DocumentPrefix starts every solver symbol derived from a document type or
// function name, so document names never collide with the fixed sorts or the
// encoder's own vocabulary.
const DocumentPrefix = "doc_"

// DocumentSymbol renders a document type or function name as its solver
// symbol.
func DocumentSymbol(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty name cannot be written as an SMT-LIB symbol")
	}
	return Symbol(DocumentPrefix + name)
}

// FunctionSig is a declared uninterpreted function.
type FunctionSig struct {
	Name     string
	Symbol   string
	Domain   []string
	Codomain string
}

// Environment holds the sort and function registries for one document and
// the declarations that introduce them to the solver.
type Environment struct {
	sorts     map[string]string
	functions map[string]FunctionSig
	// index maps a declaration key (see declKey) to its position in decls.
	index map[string]int
	decls []string
}

func newEnvironment() *Environment {
	env := &Environment{
		sorts:     make(map[string]string),
		functions: make(map[string]FunctionSig),
		index:     make(map[string]int),
	}
	env.sorts[string(document.Natural)] = "Int"
	env.sorts[string(document.Integer)] = "Int"
	env.sorts[string(document.Real)] = "Real"
	env.sorts[string(document.Boolean)] = "Bool"
	for _, s := range []string{SortVector, SortSignal, SortAny} {
		env.sorts[s] = s
		env.put(fmt.Sprintf("(declare-sort %s 0)", s))
	}
	return env
}

// BuildEnvironment translates the document's type and function declarations.
// A custom type reference that is neither declared nor basic is a SetupError.
// A name declared twice keeps its last definition.
func BuildEnvironment(doc *document.Document) (*Environment, error) {
	env := newEnvironment()
	defs := doc.TypeDefinitions()

	declared := make(map[string]bool, len(defs))
	for _, def := range defs {
		declared[def.Name] = true
	}
	for _, def := range defs {
		for _, ref := range def.Type.References() {
			if !declared[ref] {
				return nil, &SetupError{
					Subject: "type " + def.Name,
					Err:     fmt.Errorf("unresolved type reference %q", ref),
				}
			}
		}
	}

	for _, def := range defs {
		sym, err := DocumentSymbol(def.Name)
		if err != nil {
			return nil, &SetupError{Subject: "type " + def.Name, Err: err}
		}
		env.sorts[def.Name] = sym
		if def.Type.Kind == document.KindBasic {
			if builtin, ok := builtinSort(def.Type.Basic); ok {
				env.put(fmt.Sprintf("(define-sort %s () %s)", sym, builtin))
				continue
			}
		}
		// string, symbol, custom aliases and composites stay uninterpreted
		env.put(fmt.Sprintf("(declare-sort %s 0)", sym))
	}

	for _, fn := range doc.Functions() {
		sym, err := DocumentSymbol(fn.Name)
		if err != nil {
			return nil, &SetupError{Subject: "function " + fn.Name, Err: err}
		}
		env.functions[fn.Name] = FunctionSig{Name: fn.Name, Symbol: sym, Domain: []string{SortAny}, Codomain: SortAny}
		env.put(fmt.Sprintf("(declare-fun %s (%s) %s)", sym, SortAny, SortAny))
	}
	return env, nil
}

func builtinSort(b document.BasicType) (string, bool) {
	switch b {
	case document.Natural, document.Integer:
		return "Int", true
	case document.Real:
		return "Real", true
	case document.Boolean:
		return "Bool", true
	}
	return "", false
}

// put records decl, replacing an earlier declaration of the same symbol.
func (e *Environment) put(decl string) {
	key, ok := declKey(decl)
	if !ok {
		return
	}
	if i, seen := e.index[key]; seen {
		e.decls[i] = decl
		return
	}
	e.index[key] = len(e.decls)
	e.decls = append(e.decls, decl)
}

// declKey identifies what a declare-*/define-* command introduces. Sorts and
// functions live in separate SMT-LIB namespaces.
func declKey(decl string) (string, bool) {
	n, err := ParseOne(decl)
	if err != nil || n.Len() < 2 || n.List[1].IsList {
		return "", false
	}
	switch n.Head() {
	case "declare-sort", "define-sort":
		return "sort " + n.List[1].Atom, true
	case "declare-fun", "declare-const", "define-fun":
		return "fun " + n.List[1].Atom, true
	}
	return "", false
}

// Declarations returns the SMT-LIB commands in declaration order.
func (e *Environment) Declarations() []string {
	return append([]string(nil), e.decls...)
}

// Resolve relates an obligation's declaration to the environment. provided
// is true when the environment already carries the same command; a
// declaration of an environment symbol with a different signature is an
// error.
func (e *Environment) Resolve(decl string) (provided bool, err error) {
	key, ok := declKey(decl)
	if !ok {
		return false, nil
	}
	i, seen := e.index[key]
	if !seen {
		return false, nil
	}
	if e.decls[i] != decl {
		return false, fmt.Errorf("%s conflicts with %s", decl, e.decls[i])
	}
	return true, nil
}

// Sort resolves a document type name or basic type to its solver sort.
func (e *Environment) Sort(name string) (string, bool) {
	s, ok := e.sorts[name]
	return s, ok
}

// Function looks up a declared document function.
func (e *Environment) Function(name string) (FunctionSig, bool) {
	f, ok := e.functions[name]
	return f, ok
}

// Declares reports whether symbol is already taken in the solver context,
// as a sort or as a function.
func (e *Environment) Declares(symbol string) bool {
	_, isSort := e.index["sort "+symbol]
	_, isFun := e.index["fun "+symbol]
	return isSort || isFun
}

// FunctionNames returns the declared function names, sorted.
func (e *Environment) FunctionNames() []string {
	names := make([]string, 0, len(e.functions))
	for n := range e.functions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SortCount returns how many sorts were declared or defined, fixed ones
// included.
func (e *Environment) SortCount() int {
	return len(e.decls) - len(e.functions)
}
