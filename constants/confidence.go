package constants

// Confidence tells the reviewer how much manual checking a value needs.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// AcquisitionMethod records where the text of a page came from.
type AcquisitionMethod string

const (
	MethodNone         AcquisitionMethod = ""
	MethodEmbeddedText AcquisitionMethod = "embedded-text"
	MethodOCR          AcquisitionMethod = "ocr"
)

// MaxPlausibleRank bounds every rank the pipeline accepts, for the located
// participant and for census rows alike.
const MaxPlausibleRank = 500
