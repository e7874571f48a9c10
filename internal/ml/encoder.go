package ml

import (
	"fmt"
	"slices"
)

// LabelEncoder maps string labels to 0..n-1 in sorted order.
type LabelEncoder struct {
	Classes []string `json:"classes"`
}

// FitLabelEncoder collects the distinct labels.
func FitLabelEncoder(labels []string) *LabelEncoder {
	classes := slices.Clone(labels)
	slices.Sort(classes)
	return &LabelEncoder{Classes: slices.Compact(classes)}
}

// Transform encodes labels, failing on any label not seen at fit time.
func (e *LabelEncoder) Transform(labels []string) ([]int, error) {
	out := make([]int, len(labels))
	for i, l := range labels {
		code, ok := slices.BinarySearch(e.Classes, l)
		if !ok {
			return nil, fmt.Errorf("unseen label %q", l)
		}
		out[i] = code
	}
	return out, nil
}

// Inverse decodes one class index.
func (e *LabelEncoder) Inverse(code int) (string, error) {
	if code < 0 || code >= len(e.Classes) {
		return "", fmt.Errorf("class index %d outside [0, %d)", code, len(e.Classes))
	}
	return e.Classes[code], nil
}

// Len is the number of classes.
func (e *LabelEncoder) Len() int { return len(e.Classes) }
