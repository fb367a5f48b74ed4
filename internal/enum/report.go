package enum

type MailProvider string

const (
	MailProviderGoogleWorkspace MailProvider = "Google Workspace"
	MailProviderMicrosoft365    MailProvider = "Microsoft 365"
	MailProviderZoho            MailProvider = "Zoho"
	MailProviderOther           MailProvider = "Other"
)

func (p MailProvider) String() string {
	return string(p)
}

type QualityBand string

const (
	QualityBandPoor      QualityBand = "Poor"
	QualityBandFair      QualityBand = "Fair"
	QualityBandExcellent QualityBand = "Excellent"
)

func (b QualityBand) String() string {
	return string(b)
}

// QualityBandForScore maps an integer score in [0,100] to its band.
func QualityBandForScore(score int) QualityBand {
	switch {
	case score >= 71:
		return QualityBandExcellent
	case score >= 41:
		return QualityBandFair
	default:
		return QualityBandPoor
	}
}
