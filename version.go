package forms

// Version is the engine release.
const Version = "0.1.0"

// FHIRVersion is a FHIR specification release.
type FHIRVersion string

// FHIR releases. Questionnaires are read and written as R4.
const (
	R4  FHIRVersion = "4.0.1"
	R4B FHIRVersion = "4.3.0"
	R5  FHIRVersion = "5.0.0"
)

// String returns the version string.
func (v FHIRVersion) String() string {
	return string(v)
}

// Supported reports whether documents of this release can be converted.
// R4B shares the R4 Questionnaire shape.
func (v FHIRVersion) Supported() bool {
	switch v {
	case R4, R4B:
		return true
	default:
		return false
	}
}
