package services

import (
	"bytes"
	"context"
	"os"
	"testing"
)

// byteConcatenator joins files in-process so assembly tests never need the
// real binary.
type byteConcatenator struct {
	available bool
	failWith  error
	calls     int
}

func (c *byteConcatenator) Available() bool { return c.available }

func (c *byteConcatenator) Concatenate(ctx context.Context, inputPaths []string, outputPath string) error {
	c.calls++
	if c.failWith != nil {
		return c.failWith
	}
	var combined []byte
	for _, path := range inputPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		combined = append(combined, data...)
	}
	return os.WriteFile(outputPath, combined, 0o600)
}

func TestAssembleNoSegments(t *testing.T) {
	a := NewAssembler(&byteConcatenator{available: true}, t.TempDir())

	_, err := a.Assemble(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error for zero segments")
	}
	if AsError(err).Kind != ErrValidation {
		t.Errorf("expected validation kind, got %s", AsError(err).Kind)
	}
}

func TestAssembleSingleSegment(t *testing.T) {
	concat := &byteConcatenator{available: true}
	a := NewAssembler(concat, t.TempDir())

	segment := []byte("only-segment")
	out, err := a.Assemble(context.Background(), [][]byte{segment})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(out, segment) {
		t.Errorf("expected segment returned unchanged, got %q", out)
	}
	if concat.calls != 0 {
		t.Errorf("single segment must not invoke the concatenator, got %d calls", concat.calls)
	}

	// The returned buffer is a copy, not an alias.
	out[0] = 'X'
	if segment[0] == 'X' {
		t.Error("output aliases the input segment")
	}
}

func TestAssembleMultipleSegments(t *testing.T) {
	tempDir := t.TempDir()
	a := NewAssembler(&byteConcatenator{available: true}, tempDir)

	segments := [][]byte{[]byte("first-"), []byte("second-"), []byte("third")}
	out, err := a.Assemble(context.Background(), segments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "first-second-third" {
		t.Errorf("unexpected combined audio: %q", out)
	}

	// The scratch directory must be gone.
	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("failed to read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected scratch dir cleaned up, found %d entries", len(entries))
	}
}

func TestAssembleConcatenatorFailure(t *testing.T) {
	tempDir := t.TempDir()
	failure := newError(ErrNetwork, "ffmpeg concatenate failed")
	a := NewAssembler(&byteConcatenator{available: true, failWith: failure}, tempDir)

	_, err := a.Assemble(context.Background(), [][]byte{[]byte("a"), []byte("b")})
	if err == nil {
		t.Fatal("expected error")
	}
	if AsError(err).Kind != ErrNetwork {
		t.Errorf("expected network kind, got %s", AsError(err).Kind)
	}

	entries, _ := os.ReadDir(tempDir)
	if len(entries) != 0 {
		t.Errorf("expected scratch dir cleaned up after failure, found %d entries", len(entries))
	}
}

func TestAssemblerAvailable(t *testing.T) {
	if NewAssembler(nil, "").Available() {
		t.Error("nil concatenator must report unavailable")
	}
	if NewAssembler(&byteConcatenator{available: false}, "").Available() {
		t.Error("unavailable concatenator must propagate")
	}
	if !NewAssembler(&byteConcatenator{available: true}, "").Available() {
		t.Error("available concatenator must propagate")
	}
}
