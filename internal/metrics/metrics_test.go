package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegistry_RecordOperation(t *testing.T) {
	r := NewRegistry()
	r.RecordOperation("write", StatusOK, 0.01)
	r.RecordOperation("write", StatusOK, 0.02)
	r.RecordOperation("read", StatusMiss, 0.001)

	if got := testutil.ToFloat64(r.operationsTotal.WithLabelValues("write", StatusOK)); got != 2 {
		t.Errorf("expected 2 writes, got %v", got)
	}
	if got := testutil.ToFloat64(r.operationsTotal.WithLabelValues("read", StatusMiss)); got != 1 {
		t.Errorf("expected 1 read miss, got %v", got)
	}
}

func TestRegistry_RecordSnapshot(t *testing.T) {
	r := NewRegistry()
	r.RecordSnapshot("take", StatusOK, 128)
	r.RecordSnapshot("take", StatusError, 999)

	if got := testutil.ToFloat64(r.snapshotBytes.WithLabelValues("take")); got != 128 {
		t.Errorf("failed snapshots should not count bytes, got %v", got)
	}
}

func TestRegistry_WriteTextfile(t *testing.T) {
	r := NewRegistry()
	r.RecordEntryBytes("write", 512)
	r.RecordOperation("write", StatusOK, 0.5)

	path := filepath.Join(t.TempDir(), "fileboxes.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "fileboxes_operations_total") {
		t.Error("textfile should contain store metrics")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		found bool
		err   error
		want  string
	}{
		{true, nil, StatusOK},
		{false, nil, StatusMiss},
		{true, errors.New("boom"), StatusError},
	}

	for _, tt := range tests {
		if got := StatusFor(tt.found, tt.err); got != tt.want {
			t.Errorf("StatusFor(%v, %v) = %s, want %s", tt.found, tt.err, got, tt.want)
		}
	}
}
