// Package decision models the provider's evaluation response and the outcome
// variants the UI distinguishes.
package decision

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	dErrors "idintake/pkg/domain-errors"
)

// Summary is the decision summary returned by the provider.
type Summary struct {
	Outcome        string   `json:"outcome"`
	OutcomeReasons []string `json:"outcome_reasons,omitempty"`
}

// Result is the subset of an evaluation response the service reads. The raw
// response is always relayed to API callers unmodified.
type Result struct {
	Summary          Summary `json:"summary"`
	ApplicationToken string  `json:"application_token"`
	EvaluationToken  string  `json:"evaluation_token,omitempty"`
}

// Outcome returns the parsed outcome of the result.
func (r Result) Outcome() Outcome {
	return ParseOutcome(r.Summary.Outcome)
}

// ParseResult reads the members the service needs from an evaluation
// response. It never rejects the document: whatever can be read is returned,
// and err lists the members that could not be. Tokens and the outcome read
// numbers and booleans as their literal text; reasons that are not scalars
// are skipped.
func ParseResult(raw []byte) (Result, error) {
	var wire struct {
		Summary          json.RawMessage `json:"summary"`
		ApplicationToken json.RawMessage `json:"application_token"`
		EvaluationToken  json.RawMessage `json:"evaluation_token"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeUpstream, "evaluation response is not a JSON object")
	}

	var res Result
	var errs []error
	read := func(member string, v json.RawMessage, dst *string) {
		text, err := scalarText(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", member, err))
			return
		}
		*dst = text
	}
	read("application_token", wire.ApplicationToken, &res.ApplicationToken)
	read("evaluation_token", wire.EvaluationToken, &res.EvaluationToken)

	if len(wire.Summary) > 0 {
		var summary struct {
			Outcome        json.RawMessage `json:"outcome"`
			OutcomeReasons json.RawMessage `json:"outcome_reasons"`
		}
		if err := json.Unmarshal(wire.Summary, &summary); err != nil {
			errs = append(errs, fmt.Errorf("summary: %w", err))
		} else {
			read("summary.outcome", summary.Outcome, &res.Summary.Outcome)
			reasons, err := readReasons(summary.OutcomeReasons)
			if err != nil {
				errs = append(errs, fmt.Errorf("summary.outcome_reasons: %w", err))
			}
			res.Summary.OutcomeReasons = reasons
		}
	}

	if len(errs) > 0 {
		return res, dErrors.Wrap(errors.Join(errs...), dErrors.CodeUpstream, "evaluation response partially read")
	}
	return res, nil
}

var errNotScalar = errors.New("not a string, number or boolean")

func scalarText(v json.RawMessage) (string, error) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return "", nil
	}
	switch v[0] {
	case '"':
		var s string
		err := json.Unmarshal(v, &s)
		return s, err
	case '{', '[':
		return "", errNotScalar
	default:
		return string(v), nil
	}
}

func readReasons(v json.RawMessage) ([]string, error) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil {
		// A lone scalar reason still reads as one reason.
		text, serr := scalarText(v)
		if serr != nil {
			return nil, err
		}
		return []string{text}, nil
	}
	var reasons []string
	skipped := 0
	for _, item := range items {
		text, err := scalarText(item)
		if err != nil {
			skipped++
			continue
		}
		reasons = append(reasons, text)
	}
	if skipped > 0 {
		return reasons, fmt.Errorf("%d of %d reasons skipped: %w", skipped, len(items), errNotScalar)
	}
	return reasons, nil
}

// Kind enumerates the outcome screens.
type Kind int

const (
	KindUnknown Kind = iota
	KindApproved
	KindManualReview
	KindDenied
)

func (k Kind) String() string {
	switch k {
	case KindApproved:
		return "approved"
	case KindManualReview:
		return "manual_review"
	case KindDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Outcome is a closed variant over Kind. Raw keeps the provider's original
// text, which the unknown screen shows verbatim.
type Outcome struct {
	Kind Kind
	Raw  string
}

// ParseOutcome maps a provider outcome string to its variant, case-insensitively.
func ParseOutcome(raw string) Outcome {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approved":
		return Outcome{Kind: KindApproved, Raw: raw}
	case "manual review":
		return Outcome{Kind: KindManualReview, Raw: raw}
	case "deny", "denied":
		return Outcome{Kind: KindDenied, Raw: raw}
	default:
		return Outcome{Kind: KindUnknown, Raw: raw}
	}
}
