package logging

import "testing"

func TestNew(t *testing.T) {
	for _, enc := range []string{"", "json", "console"} {
		logger, err := New("debug", enc)
		if err != nil {
			t.Fatalf("New(debug, %q): %v", enc, err)
		}
		if !logger.Core().Enabled(-1) {
			t.Fatalf("debug level not enabled")
		}
	}
	if _, err := New("loud", "json"); err == nil {
		t.Fatalf("bad level accepted")
	}
	if _, err := New("info", "xml"); err == nil {
		t.Fatalf("bad encoding accepted")
	}
}
