package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
)

// ---------------------------------------------------------------------------
// FFmpegConcatenator
// Drives the external ffmpeg binary through its concat demuxer: an ordered
// manifest of input files, stream-copy mode, no re-encoding. Valid because
// every segment comes from the same provider with identical codec settings.
// ---------------------------------------------------------------------------

type FFmpegConcatenator struct {
	bin string
}

var _ Concatenator = (*FFmpegConcatenator)(nil)

// NewFFmpegConcatenator uses the given binary name or path; empty means
// "ffmpeg" resolved via PATH.
func NewFFmpegConcatenator(bin string) *FFmpegConcatenator {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpegConcatenator{bin: bin}
}

// Available reports whether the ffmpeg binary can be found.
func (f *FFmpegConcatenator) Available() bool {
	_, err := exec.LookPath(f.bin)
	return err == nil
}

// Concatenate joins the ordered input files into outputPath via
// `ffmpeg -f concat -c copy`. The manifest is written next to the output
// file and removed when the call returns.
func (f *FFmpegConcatenator) Concatenate(ctx context.Context, inputPaths []string, outputPath string) error {
	if len(inputPaths) == 0 {
		return newError(ErrValidation, "no input files to concatenate")
	}

	// Concat demuxer manifest: one `file '<path>'` line per input, in order
	listPath := filepath.Join(filepath.Dir(outputPath), "concat_list.txt")
	list, err := os.Create(listPath)
	if err != nil {
		return wrapError(ErrNetwork, err, "failed to create concat list")
	}
	for _, path := range inputPaths {
		fmt.Fprintf(list, "file '%s'\n", path)
	}
	if err := list.Close(); err != nil {
		return wrapError(ErrNetwork, err, "failed to write concat list")
	}
	defer os.Remove(listPath)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy", // Copy without re-encoding
		"-y",
		outputPath,
	}

	log.Printf("[FFmpeg] Concatenating %d audio files", len(inputPaths))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.bin, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return wrapError(ErrNetwork, err, "ffmpeg concatenate failed: %s", stderr.String())
	}

	return nil
}
