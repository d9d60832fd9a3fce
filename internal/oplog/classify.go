package oplog

import "strings"

// Status is the two-valued verdict for a located update operation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Classification combines the locator and marker results into one verdict.
// Status is StatusSuccess exactly when both markers confirmed.
type Classification struct {
	Status              Status
	VersionConfirmed    bool
	CompletionConfirmed bool
	OperationFound      bool
	Reason              string
}

// Classify derives the verdict for one operation block. When the block was not
// found the marker flags are forced false regardless of m; otherwise the
// verdict succeeds iff both markers confirmed, and Reason names the missing
// ones in a fixed order (version first, then completion) joined with "and".
func Classify(block Block, m Markers) Classification {
	if !block.Found {
		return Classification{
			Status: StatusFailed,
			Reason: "no update operation found",
		}
	}
	c := Classification{
		VersionConfirmed:    m.VersionConfirmed,
		CompletionConfirmed: m.CompletionConfirmed,
		OperationFound:      true,
	}
	if m.VersionConfirmed && m.CompletionConfirmed {
		c.Status = StatusSuccess
		return c
	}
	c.Status = StatusFailed
	var missing []string
	if !m.VersionConfirmed {
		missing = append(missing, "version confirmation not found")
	}
	if !m.CompletionConfirmed {
		missing = append(missing, "completion marker not found")
	}
	c.Reason = strings.Join(missing, " and ")
	return c
}
