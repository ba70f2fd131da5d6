package log

import "testing"

func TestParse(t *testing.T) {
	level, err := Parse("warn")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if level != Warn {
		t.Errorf("Expected Warn, got %v", level)
	}

	if _, err := Parse("verbose"); err == nil {
		t.Error("Parse accepted an unknown level")
	}
}

func TestDiscardLoggerDropsEverything(t *testing.T) {
	logger := Discard()

	// Must not panic or write anywhere
	logger.Debug("debug %d", 1)
	logger.Error("error %d", 2)

	child := logger.Named("child")
	child.Warn("warn")
}
