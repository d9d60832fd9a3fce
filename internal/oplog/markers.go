package oplog

import (
	"regexp"
	"strings"
)

// Default marker phrases written by the vendor updater. All three can be
// overridden in configuration for localized installations.
const (
	DefaultStartMarker      = "Update operation started"
	DefaultCompletionMarker = "Update operation completed"
	DefaultVersionPhrase    = "program version"
)

// Markers holds the two independent confirmation tests applied to an operation
// block.
type Markers struct {
	VersionConfirmed    bool
	CompletionConfirmed bool
}

// CheckMarkers tests block content for the version confirmation and the
// completion phrase. The version test requires the phrase, a hyphen with
// optional surrounding whitespace, then the exact target token followed by a
// word boundary, so token "187" never matches inside "1870" or "2187".
func CheckMarkers(content, versionPhrase, targetToken, completion string) Markers {
	return Markers{
		VersionConfirmed:    versionConfirmed(content, versionPhrase, targetToken),
		CompletionConfirmed: strings.Contains(content, completion),
	}
}

func versionConfirmed(content, phrase, token string) bool {
	if token == "" {
		return false
	}
	re := regexp.MustCompile(regexp.QuoteMeta(phrase) + `\s*-\s*` + regexp.QuoteMeta(token) + `\b`)
	return re.MatchString(content)
}
