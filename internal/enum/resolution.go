package enum

// ResolutionOutcome is the result class of a single MX lookup. Empty and
// Unreachable both persist as ScanStatusFailed.
type ResolutionOutcome string

const (
	ResolutionResolved    ResolutionOutcome = "resolved"
	ResolutionEmpty       ResolutionOutcome = "empty"
	ResolutionUnreachable ResolutionOutcome = "unreachable"
)

func (o ResolutionOutcome) String() string {
	return string(o)
}

func (o ResolutionOutcome) ScanStatus() ScanStatus {
	if o == ResolutionResolved {
		return ScanStatusCompleted
	}
	return ScanStatusFailed
}
