package smt

import "context"

// CacheEntry is a stored definitive answer with its artifacts in SMT-LIB
// text form.
type CacheEntry struct {
	Status SatStatus
	Proof  string
	Model  string
	Core   string
}

// Cache stores answers keyed by Query.Key. Lookup returns (nil, nil) on a
// miss.
type Cache interface {
	Lookup(ctx context.Context, key string) (*CacheEntry, error)
	Save(ctx context.Context, key string, entry CacheEntry) error
}

func entryFromResponse(resp *Response) CacheEntry {
	entry := CacheEntry{Status: resp.Status}
	if n, ok := resp.Answer(RequestProof); ok {
		entry.Proof = n.String()
	}
	if n, ok := resp.Answer(RequestModel); ok {
		entry.Model = n.String()
	}
	if n, ok := resp.Answer(RequestUnsatCore); ok {
		entry.Core = n.String()
	}
	return entry
}

// response rebuilds a solver response. Artifacts that no longer parse are
// dropped; the status alone still decides the result.
func (c CacheEntry) response() *Response {
	resp := &Response{Status: c.Status, Answers: make(map[Request]Node)}
	for req, text := range map[Request]string{
		RequestProof:     c.Proof,
		RequestModel:     c.Model,
		RequestUnsatCore: c.Core,
	} {
		if text == "" {
			continue
		}
		if n, err := ParseOne(text); err == nil {
			resp.Answers[req] = n
		}
	}
	return resp
}
