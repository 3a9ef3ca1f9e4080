// Package validation classifies request validation failures.
//
// Every rule reports an Outcome with an explicit Kind: Syntactic failures
// (missing field, wrong JSON type, malformed date, non-integer) map to HTTP
// 400 and Semantic failures (range, length, charset, enum, cardinality,
// precision) map to HTTP 422. A request with any syntactic failure is a 400.
package validation

import (
	"regexp"
	"strings"
)

// Kind is the category of a validation failure.
type Kind uint8

const (
	// KindUnspecified means the rule did not declare a kind; InferKind decides.
	KindUnspecified Kind = iota
	Syntactic
	Semantic
)

func (k Kind) String() string {
	switch k {
	case Syntactic:
		return "syntactic"
	case Semantic:
		return "semantic"
	default:
		return "unspecified"
	}
}

// Outcome is a single field-level failure.
type Outcome struct {
	Field   string
	Message string
	Kind    Kind
}

// ResolvedKind returns the declared kind, or the kind inferred from the
// message when none was declared.
func (o Outcome) ResolvedKind() Kind {
	if o.Kind != KindUnspecified {
		return o.Kind
	}
	return InferKind(o.Message)
}

var semanticPhrases = []string{
	"contains invalid characters",
	"at most",
	"must be one of",
	"exceeds",
	"must be an array",
	"at least one",
}

// typePhrase matches "must be a/an <type>", capturing a following "between".
var typePhrase = regexp.MustCompile(
	`must be an? (?:string|integer|number|boolean|object|JSON object|valid ISO 8601 date)( between)?`,
)

// InferKind classifies an untagged message by its wording. Semantic phrasings
// are checked first; unmatched messages are semantic.
func InferKind(message string) Kind {
	for _, p := range semanticPhrases {
		if strings.Contains(message, p) {
			return Semantic
		}
	}
	if strings.Contains(message, "is required") {
		return Syntactic
	}
	for _, m := range typePhrase.FindAllStringSubmatch(message, -1) {
		if m[1] == "" {
			return Syntactic
		}
	}
	return Semantic
}
