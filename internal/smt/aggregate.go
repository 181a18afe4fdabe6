package smt

import "strings"

// Aggregate folds property results into a document status. Any error or
// disproven property fails the document; unknowns only make it partial.
func Aggregate(props []VerifiedProperty) VerificationStatus {
	if len(props) == 0 {
		return VerificationStatus{Kind: StatusIncomplete}
	}

	var errored, disproven []string
	proven := 0
	for _, p := range props {
		switch p.Result.Kind {
		case ResultError:
			errored = append(errored, p.ID)
		case ResultDisproven:
			disproven = append(disproven, p.ID)
		case ResultProven:
			proven++
		}
	}

	switch {
	case len(errored) > 0:
		return VerificationStatus{Kind: StatusFailed, Reason: "verification error: " + strings.Join(errored, ", ")}
	case len(disproven) > 0:
		return VerificationStatus{Kind: StatusFailed, Reason: "property disproven: " + strings.Join(disproven, ", ")}
	case proven == len(props):
		return VerificationStatus{Kind: StatusAllVerified}
	default:
		return VerificationStatus{Kind: StatusPartiallyVerified}
	}
}
