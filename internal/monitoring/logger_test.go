package monitoring

import "testing"

func TestSetLoggerRedirects(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) { got = format })

	Logf("link: %s", "connected")
	if got != "link: %s" {
		t.Errorf("replacement logger did not receive the call, got %q", got)
	}
}

func TestSetLoggerNilMutes(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(string, ...interface{}) { called = true })
	SetLogger(nil)

	// Muted, not nil: calling through must be safe and silent.
	Logf("dropped on the floor")
	if called {
		t.Error("nil logger still routed to the previous sink")
	}
	if Logf == nil {
		t.Error("SetLogger(nil) must install a no-op, not a nil function")
	}
}
