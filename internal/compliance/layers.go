package compliance

import (
	"context"
	"fmt"
	"strings"

	"aispverify/internal/mangle"
	"aispverify/internal/smt"
)

// baseProperties reads the layer-0 and layer-1 facts off the inputs.
func baseProperties(in *Input) map[string]bool {
	base := map[string]bool{}
	if in.Analysis != nil {
		base[mangle.PropStable] = in.Analysis.TriVector.Complete()
		base[mangle.PropDeterministic] = in.Analysis.Ambiguity < AmbiguityBound
	}
	if in.Document != nil {
		base[mangle.PropZeroCopy] = len(in.Document.TypeDefinitions()) > 0
	}
	return base
}

// EdgeObligation proves the conclusion of e from the derived truth values of
// its two antecedents and the edge contract.
func EdgeObligation(e mangle.Edge, holds map[string]bool) smt.Obligation {
	sym := func(p string) string { return "prop_" + p }
	value := func(p string) string {
		if holds[p] {
			return "true"
		}
		return "false"
	}
	return smt.Obligation{
		ID:          fmt.Sprintf("composition_%s_%s", e.From, e.To),
		Category:    smt.CategoryProtocolCompliance,
		Description: e.From + " enables " + e.To,
		Declarations: []string{
			"(declare-const " + sym(e.Left) + " Bool)",
			"(declare-const " + sym(e.Right) + " Bool)",
			"(declare-const " + sym(e.Conclusion) + " Bool)",
		},
		Premises: []smt.Premise{
			{Name: "contract", Formula: fmt.Sprintf("(=> (and %s %s) %s)", sym(e.Left), sym(e.Right), sym(e.Conclusion))},
			{Name: "observed_" + e.Left, Formula: fmt.Sprintf("(= %s %s)", sym(e.Left), value(e.Left))},
			{Name: "observed_" + e.Right, Formula: fmt.Sprintf("(= %s %s)", sym(e.Right), value(e.Right))},
		},
		Goal: sym(e.Conclusion),
	}
}

// certificate names a verified edge, e.g. L0_L1_COMPOSITION_VERIFIED.
func certificate(e mangle.Edge) string {
	prefix := func(layer string) string {
		if i := strings.IndexByte(layer, '_'); i > 0 {
			return layer[:i]
		}
		return layer
	}
	return prefix(e.From) + "_" + prefix(e.To) + "_COMPOSITION_VERIFIED"
}

func layerFallback() LayerComposition {
	layers := make([]LayerStatus, len(mangle.Layers))
	for i, l := range mangle.Layers {
		layers[i] = LayerStatus{Name: l.Name}
	}
	return LayerComposition{Layers: layers, Proofs: []CompositionProof{}}
}

func (v *Validator) layerComposition(ctx context.Context, in *Input) (LayerComposition, error) {
	comp, err := mangle.Compose(baseProperties(in))
	if err != nil {
		return LayerComposition{}, fmt.Errorf("layer derivation: %w", err)
	}

	res := LayerComposition{}
	for _, l := range mangle.Layers {
		res.Layers = append(res.Layers, LayerStatus{Name: l.Name, Verified: comp.Verified[l.Name]})
	}
	for _, e := range mangle.Edges {
		proof := CompositionProof{
			From:     e.From,
			To:       e.To,
			Property: e.Property(),
			Enabled:  comp.EdgeEnabled[e.From+"->"+e.To],
		}
		if v.backend.Check(ctx, EdgeObligation(e, comp.Holds)).Result == smt.Proven {
			proof.SolverVerified = true
			proof.Certificate = certificate(e)
		}
		res.Proofs = append(res.Proofs, proof)
	}
	return res, nil
}
