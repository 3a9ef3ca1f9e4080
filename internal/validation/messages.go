package validation

import (
	"fmt"
	"strings"
)

// Message constructors. Each declares its kind explicitly; the wording of
// every message also classifies to the same kind through InferKind.

func Required(field string) Outcome {
	return Outcome{Field: field, Message: field + " is required", Kind: Syntactic}
}

// WrongType reports a JSON type mismatch. typ carries its article, e.g.
// "a string" or "an integer".
func WrongType(field, typ string) Outcome {
	return Outcome{Field: field, Message: fmt.Sprintf("%s must be %s", field, typ), Kind: Syntactic}
}

func Malformed(field string) Outcome {
	return Outcome{Field: field, Message: field + " must be a JSON object", Kind: Syntactic}
}

func InvalidDate(field string) Outcome {
	return Outcome{
		Field:   field,
		Message: field + " must be a valid ISO 8601 date (YYYY-MM-DD)",
		Kind:    Syntactic,
	}
}

func Length(field string, maxLen int) Outcome {
	return Outcome{
		Field:   field,
		Message: fmt.Sprintf("%s must be between 1 and %d characters", field, maxLen),
		Kind:    Semantic,
	}
}

func InvalidCharacters(field string) Outcome {
	return Outcome{
		Field:   field,
		Message: field + " contains invalid characters. Only letters, numbers, spaces, and basic punctuation are allowed",
		Kind:    Semantic,
	}
}

func OneOf(field string, allowed []string) Outcome {
	return Outcome{
		Field:   field,
		Message: fmt.Sprintf("%s must be one of: %s", field, strings.Join(allowed, ", ")),
		Kind:    Semantic,
	}
}

func NonEmptyArray(field string) Outcome {
	return Outcome{Field: field, Message: field + " must be an array with at least one item", Kind: Semantic}
}

func IntRange(field string, minV, maxV int64) Outcome {
	return Outcome{
		Field:   field,
		Message: fmt.Sprintf("%s must be an integer between %d and %d", field, minV, maxV),
		Kind:    Semantic,
	}
}

// ItemIntRange reports an out-of-range integer on a sale item; name is the
// bare field name such as "productId".
func ItemIntRange(field, name string, minV, maxV int64) Outcome {
	return Outcome{
		Field:   field,
		Message: fmt.Sprintf("Each item must have a valid %s (integer between %d and %d)", name, minV, maxV),
		Kind:    Semantic,
	}
}

// AmountRange reports an amount outside [minV, maxV], or (minV, maxV] when
// exclusiveMin is set.
func AmountRange(field, minV, maxV string, exclusiveMin bool) Outcome {
	msg := fmt.Sprintf("%s must be between %s and %s", field, minV, maxV)
	if exclusiveMin {
		msg = fmt.Sprintf("%s must be greater than %s and at most %s", field, minV, maxV)
	}
	return Outcome{Field: field, Message: msg, Kind: Semantic}
}

func Precision(field string) Outcome {
	return Outcome{Field: field, Message: field + " can have at most 2 decimal places", Kind: Semantic}
}

func ExceedsGross(field string) Outcome {
	return Outcome{Field: field, Message: field + " exceeds the item gross value", Kind: Semantic}
}

func ExceedsMaxTotal(field string) Outcome {
	return Outcome{
		Field:   field,
		Message: fmt.Sprintf("%s gross total exceeds the maximum of %s", field, MaxGrossTotal.StringFixed(2)),
		Kind:    Semantic,
	}
}

func DateOrder(from, to string) Outcome {
	return Outcome{Field: from, Message: fmt.Sprintf("%s must not be after %s", from, to), Kind: Semantic}
}
