package smt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) []Node {
	t.Helper()
	nodes, err := Parse(s)
	require.NoError(t, err)
	return nodes
}

func TestDecodeResponseUnsat(t *testing.T) {
	out := mustParse(t, `unsat
((asserted (not goal)) false)
(range_V_H goal)
(error "line 12 column 10: model is not available")
(:reason-unknown "unknown")
(:rlimit-count 1234 :time 0.01)`)
	reqs := []Request{RequestProof, RequestUnsatCore, RequestModel, RequestReasonUnknown, RequestStatistics}

	resp := decodeResponse(out, reqs)
	assert.Equal(t, Unsat, resp.Status)
	assert.Empty(t, resp.Errors)

	_, hasModel := resp.Answer(RequestModel)
	assert.False(t, hasModel)

	core, ok := resp.Answer(RequestUnsatCore)
	require.True(t, ok)
	assert.Equal(t, []string{"range_V_H", "goal"}, DecodeCore(core))

	stats, ok := resp.Answer(RequestStatistics)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"rlimit-count": "1234", "time": "0.01"}, DecodeInfo(stats))
}

func TestDecodeResponseErrorsBeforeCheck(t *testing.T) {
	out := mustParse(t, `(error "line 4 column 15: unknown constant foo")
sat
(error "line 9: proof is not available")`)
	resp := decodeResponse(out, []Request{RequestProof})
	assert.Equal(t, Sat, resp.Status)
	assert.Equal(t, []string{"line 4 column 15: unknown constant foo"}, resp.Errors)
	assert.Empty(t, resp.Answers)
}

func TestDecodeResponseNoStatus(t *testing.T) {
	resp := decodeResponse(mustParse(t, `(error "invalid command")`), nil)
	assert.Equal(t, SatStatus(""), resp.Status)
	assert.Len(t, resp.Errors, 1)
}

func TestDecodeModel(t *testing.T) {
	model := mustParse(t, `(
  (define-fun opt_0 () SemanticOpt
    SemanticOpt!val!0)
  (define-fun V_S () Space
    Space!val!2)
  (define-fun dot_product ((x!0 Vector) (x!1 Vector)) Real
    (ite (and (= x!0 Vector!val!0) (= x!1 Vector!val!1)) 1.0
    0.0))
  (define-fun target ((x!0 SemanticOpt)) Space
    (ite (= x!0 SemanticOpt!val!0) Space!val!2
      Space!val!0))
  (forall ((x Space)) (or (= x Space!val!0) (= x Space!val!1) (= x Space!val!2)))
)`)[0]

	m := DecodeModel("safety_isolation", model)
	assert.Equal(t, "cex_safety_isolation", m.ID)
	assert.Equal(t, "SemanticOpt!val!0", m.Assignments["opt_0"])
	assert.Equal(t, "Space!val!2", m.Assignments["V_S"])

	dot := m.Functions["dot_product"]
	assert.Equal(t, []string{"Vector", "Vector"}, dot.Domain)
	assert.Equal(t, "Real", dot.Codomain)
	assert.Equal(t, map[string]string{"Vector!val!0, Vector!val!1": "1.0"}, dot.Mapping)
	assert.Equal(t, "0.0", dot.Default)

	target := m.Functions["target"]
	assert.Equal(t, "Space!val!2", target.Mapping["SemanticOpt!val!0"])
	assert.Equal(t, "Space!val!0", target.Default)
	assert.Contains(t, m.Evaluation, "2 assignments")
}

func TestDecodeModelLegacyKeyword(t *testing.T) {
	n := mustParse(t, `(model (define-fun x () Int 3))`)[0]
	m := DecodeModel("p", n)
	assert.Equal(t, map[string]string{"x": "3"}, m.Assignments)
}

func TestDecodeProofSize(t *testing.T) {
	n := mustParse(t, `(mp (asserted (not goal)) (rewrite (= (not goal) false)) false)`)[0]
	p := DecodeProof("orth", n, []string{"goal"})
	assert.Equal(t, "proof_orth", p.ID)
	assert.Equal(t, 6, p.Size)
	assert.True(t, p.Valid)
	assert.Equal(t, []string{"goal"}, p.Dependencies)
}
