package smt

import (
	"fmt"
	"sort"
	"strings"
)

// DecodeProof turns a get-proof answer into a certificate. Size counts rule
// applications (list nodes) in the proof term.
func DecodeProof(id string, proof Node, core []string) FormalProof {
	return FormalProof{
		ID:           "proof_" + id,
		Format:       "smt2-proof",
		Content:      proof.String(),
		Size:         countApplications(proof),
		Dependencies: append([]string(nil), core...),
		Valid:        proof.IsList || (proof.Atom != "" && proof.Atom != "unsupported"),
	}
}

func countApplications(n Node) int {
	if !n.IsList {
		return 0
	}
	total := 1
	for _, c := range n.List {
		total += countApplications(c)
	}
	return total
}

// DecodeCore reads a get-unsat-core answer: a list of assertion names.
func DecodeCore(n Node) []string {
	if !n.IsList {
		return nil
	}
	names := make([]string, 0, n.Len())
	for _, c := range n.List {
		if !c.IsList {
			names = append(names, c.Atom)
		}
	}
	return names
}

// DecodeModel reads a get-model answer. Constants become assignments and
// functions become tables built from their ite chains. Entries that are not
// define-fun (sort universes, cardinality axioms) are skipped.
func DecodeModel(id string, n Node) CounterexampleModel {
	m := CounterexampleModel{
		ID:          "cex_" + id,
		Assignments: make(map[string]string),
		Functions:   make(map[string]FunctionInterpretation),
	}
	entries := n.List
	if n.Head() == "model" {
		entries = entries[1:]
	}
	for _, e := range entries {
		if e.Head() != "define-fun" || e.Len() < 5 {
			continue
		}
		name := e.List[1].Atom
		params := e.List[2]
		codomain := e.List[3].String()
		body := e.List[4]
		if params.Len() == 0 {
			m.Assignments[name] = body.String()
			continue
		}
		fn := FunctionInterpretation{Name: name, Codomain: codomain, Mapping: make(map[string]string)}
		var vars []string
		for _, p := range params.List {
			if p.IsList && p.Len() == 2 {
				vars = append(vars, p.List[0].Atom)
				fn.Domain = append(fn.Domain, p.List[1].String())
			}
		}
		fn.Default = decodeIte(body, vars, fn.Mapping)
		m.Functions[name] = fn
	}
	m.Evaluation = describeModel(m)
	return m
}

// decodeIte walks (ite (= x!0 a) v rest) chains into mapping and returns the
// final else branch.
func decodeIte(body Node, vars []string, mapping map[string]string) string {
	for body.Head() == "ite" && body.Len() == 4 {
		key, ok := iteKey(body.List[1], vars)
		if !ok {
			break
		}
		mapping[key] = body.List[2].String()
		body = body.List[3]
	}
	return body.String()
}

func iteKey(cond Node, vars []string) (string, bool) {
	eqs := []Node{cond}
	if cond.Head() == "and" {
		eqs = cond.List[1:]
	}
	args := make(map[string]string, len(eqs))
	for _, eq := range eqs {
		if eq.Head() != "=" || eq.Len() != 3 {
			return "", false
		}
		args[eq.List[1].String()] = eq.List[2].String()
	}
	parts := make([]string, 0, len(vars))
	for _, v := range vars {
		val, ok := args[v]
		if !ok {
			val = "_"
		}
		parts = append(parts, val)
	}
	if len(args) == 0 {
		return "", false
	}
	return strings.Join(parts, ", "), true
}

func describeModel(m CounterexampleModel) string {
	if len(m.Assignments) == 0 && len(m.Functions) == 0 {
		return "empty model"
	}
	keys := make([]string, 0, len(m.Assignments))
	for k := range m.Assignments {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" = "+m.Assignments[k])
	}
	return fmt.Sprintf("%d assignments, %d functions: %s", len(m.Assignments), len(m.Functions), strings.Join(parts, "; "))
}

// DecodeInfo reads a get-info answer (:key value ...) into a map.
func DecodeInfo(n Node) map[string]string {
	out := make(map[string]string)
	if !n.IsList {
		return out
	}
	for i := 0; i+1 < n.Len(); i += 2 {
		k := n.List[i]
		if k.IsList || !strings.HasPrefix(k.Atom, ":") {
			continue
		}
		v := n.List[i+1]
		if v.Quoted || !v.IsList {
			out[strings.TrimPrefix(k.Atom, ":")] = v.Atom
		} else {
			out[strings.TrimPrefix(k.Atom, ":")] = v.String()
		}
	}
	return out
}
