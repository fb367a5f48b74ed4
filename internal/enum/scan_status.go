package enum

type ScanStatus string

const (
	ScanStatusPending   ScanStatus = "pending"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusFailed    ScanStatus = "failed"
)

func (s ScanStatus) String() string {
	return string(s)
}

func (s ScanStatus) IsTerminal() bool {
	return s == ScanStatusCompleted || s == ScanStatusFailed
}

func (s ScanStatus) IsValid() bool {
	switch s {
	case ScanStatusPending, ScanStatusCompleted, ScanStatusFailed:
		return true
	}
	return false
}
