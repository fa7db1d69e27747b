package summary

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestFromError(t *testing.T) {
	s := FromError("d1", KindRequirements, "rfp.txt", errors.New("boom"), time.Unix(0, 0))
	if !s.Failed() {
		t.Fatal("expected failed summary")
	}
	if !strings.HasPrefix(s.Text, ErrorPrefix) {
		t.Errorf("expected error prefix, got %q", s.Text)
	}
	if !strings.Contains(s.Text, "rfp.txt") || !strings.Contains(s.Text, "boom") {
		t.Errorf("expected title and cause in text, got %q", s.Text)
	}
}
