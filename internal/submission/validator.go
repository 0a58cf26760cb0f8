// Package submission normalizes and validates inbound record submissions.
package submission

import (
	"encoding/json"
	"regexp"
	"strings"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]`)

// Slugify derives a filesystem-safe identifier from a business name: the
// lowercased, trimmed name with every character outside [a-z0-9] replaced
// by a hyphen. Consecutive separators are intentionally not collapsed so
// the transform stays a reproducible one-to-one replacement.
func Slugify(name string) string {
	return slugPattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// InvalidInputError marks a submission rejected before any remote work.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return e.Reason
}

// Submission is a validated record candidate. Fields holds the payload as
// the caller sent it, so extra fields survive into the committed file.
type Submission struct {
	Name   string
	URL    string
	Slug   string
	Fields map[string]any
}

// Validate parses a raw request body into a Submission. It fails with
// InvalidInputError when the body is not JSON or the name is missing,
// not a string, or blank after trimming.
func Validate(body []byte) (Submission, error) {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return Submission{}, &InvalidInputError{Reason: "Invalid JSON body."}
	}

	name, ok := fields["name"].(string)
	if !ok || strings.TrimSpace(name) == "" {
		return Submission{}, &InvalidInputError{Reason: "Missing or invalid business name."}
	}

	url, _ := fields["url"].(string)

	return Submission{
		Name:   name,
		URL:    url,
		Slug:   Slugify(name),
		Fields: fields,
	}, nil
}
