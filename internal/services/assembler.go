package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ---------------------------------------------------------------------------
// Audio assembler
// Orders generated audio segments and joins them into one playable byte
// stream. Binary concatenation is delegated to a Concatenator so the
// external tool can be swapped for an in-process implementation (tests do
// exactly that) without touching the assembly contract.
// ---------------------------------------------------------------------------

// Concatenator performs lossless stream-copy concatenation of audio files.
type Concatenator interface {
	// Available reports whether the tool can be invoked at all.
	Available() bool
	// Concatenate joins the ordered input files into outputPath without
	// re-encoding. All inputs must share codec parameters.
	Concatenate(ctx context.Context, inputPaths []string, outputPath string) error
}

// Assembler combines per-chunk audio buffers into the final stream.
type Assembler struct {
	concat  Concatenator
	tempDir string // parent for per-call scratch dirs; "" = system default
}

func NewAssembler(concat Concatenator, tempDir string) *Assembler {
	return &Assembler{concat: concat, tempDir: tempDir}
}

// Available reports whether multi-segment assembly is possible.
func (a *Assembler) Available() bool {
	return a.concat != nil && a.concat.Available()
}

// Assemble joins the ordered segments into one buffer. A single segment is
// returned unchanged with no tool invocation. For multiple segments every
// intermediate file lives in a scratch directory scoped to this call and
// removed before returning, success or not.
func (a *Assembler) Assemble(ctx context.Context, segments [][]byte) ([]byte, error) {
	switch len(segments) {
	case 0:
		return nil, newError(ErrValidation, "no audio segments to assemble")
	case 1:
		return append([]byte(nil), segments[0]...), nil
	}

	workDir, err := os.MkdirTemp(a.tempDir, "voxpipe-concat-")
	if err != nil {
		return nil, wrapError(ErrNetwork, err, "failed to create scratch dir")
	}
	defer os.RemoveAll(workDir)

	inputPaths := make([]string, len(segments))
	for i, segment := range segments {
		path := filepath.Join(workDir, fmt.Sprintf("part_%03d.mp3", i))
		if err := os.WriteFile(path, segment, 0o600); err != nil {
			return nil, wrapError(ErrNetwork, err, "failed to write segment %d", i)
		}
		inputPaths[i] = path
	}

	outputPath := filepath.Join(workDir, "combined.mp3")
	if err := a.concat.Concatenate(ctx, inputPaths, outputPath); err != nil {
		return nil, err
	}

	combined, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, wrapError(ErrNetwork, err, "failed to read combined audio")
	}
	return combined, nil
}
