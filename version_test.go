package forms

import "testing"

func TestFHIRVersion(t *testing.T) {
	tests := []struct {
		version   FHIRVersion
		want      string
		supported bool
	}{
		{R4, "4.0.1", true},
		{R4B, "4.3.0", true},
		{R5, "5.0.0", false},
		{FHIRVersion("3.0.2"), "3.0.2", false},
	}

	for _, tt := range tests {
		if got := tt.version.String(); got != tt.want {
			t.Errorf("String() = %q; want %q", got, tt.want)
		}
		if got := tt.version.Supported(); got != tt.supported {
			t.Errorf("%v.Supported() = %v; want %v", tt.version, got, tt.supported)
		}
	}
}
