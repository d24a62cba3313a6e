package version

import (
	"strings"
	"testing"
)

func TestStringIncludesIdentityFields(t *testing.T) {
	s := String()
	for _, want := range []string{"dictata", "commit=", "date=", "go="} {
		if !strings.Contains(s, want) {
			t.Fatalf("version string %q missing %q", s, want)
		}
	}
}
