package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kozaktomas/suraksha/internal/faceauth"
)

func TestScanSettled(t *testing.T) {
	tests := []struct {
		name   string
		status faceauth.Status
		want   bool
	}{
		{"detecting", faceauth.Status{View: faceauth.ViewScanEntry, State: faceauth.StateDetecting}, false},
		{"matched, waiting for display delay", faceauth.Status{View: faceauth.ViewScanEntry, State: faceauth.StateSuccess}, false},
		{"completed", faceauth.Status{View: faceauth.ViewScanEntry, State: faceauth.StateSuccess, Completed: true}, true},
		{"failed", faceauth.Status{View: faceauth.ViewScanEntry, State: faceauth.StateFailed}, true},
		{"denied", faceauth.Status{View: faceauth.ViewDenied}, true},
		{"enrollment ready", faceauth.Status{View: faceauth.ViewFaceSignup, HasFaceData: true}, true},
		{"signup without face", faceauth.Status{View: faceauth.ViewFaceSignup}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := scanSettled(tc.status); got != tc.want {
				t.Errorf("scanSettled() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestScanWatcher_ClosesOnce(t *testing.T) {
	w := &scanWatcher{done: make(chan struct{})}

	w.observe(faceauth.Status{View: faceauth.ViewScanEntry, State: faceauth.StateDetecting})
	select {
	case <-w.done:
		t.Fatal("watcher settled too early")
	default:
	}

	w.observe(faceauth.Status{View: faceauth.ViewScanEntry, State: faceauth.StateFailed, Message: "no frames"})
	w.observe(faceauth.Status{View: faceauth.ViewScanEntry, State: faceauth.StateFailed, Message: "again"})

	<-w.done
	if got := w.status().Message; got != "again" {
		t.Errorf("last status message = %q", got)
	}
}

func TestReadRoutes(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "routes.json")
	if err := os.WriteFile(valid, []byte(`[[[12.97,77.59],[12.98,77.6]],[[12.9,77.5]]]`), 0o600); err != nil {
		t.Fatal(err)
	}
	routes, err := readRoutes(valid)
	if err != nil {
		t.Fatalf("readRoutes failed: %v", err)
	}
	if len(routes) != 2 || routes[0][1].Lat() != 12.98 {
		t.Errorf("unexpected routes %v", routes)
	}

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte(`[]`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := readRoutes(empty); err == nil {
		t.Error("expected error for empty route list")
	}

	if _, err := readRoutes(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
