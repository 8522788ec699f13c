// Package audio implements the media intake pipeline: validation, size
// governance, ffmpeg compression and transcription hand-off.
package audio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrCompressionUnavailable means no ffmpeg binary is reachable in this
// environment. Callers treat it as a soft failure: oversized input is
// rejected, everything else proceeds uncompressed.
var ErrCompressionUnavailable = errors.New("audio compression not available in this environment, ffmpeg is required")

// Compression thresholds. WAV is uncompressed so it pays off much
// earlier than MP3.
const (
	wavCompressThreshold = 10 * 1024 * 1024
	mp3CompressThreshold = 22 * 1024 * 1024
)

// CompressionResult describes one compression invocation. The output
// artifact is consumed by the transcription step and then deleted.
type CompressionResult struct {
	OutputPath     string
	OriginalSize   int64
	CompressedSize int64
	// Size reduction as a percentage of the original
	CompressionRatio float64
}

// Compressor transcodes audio to mono low-bitrate MP3 via ffmpeg
type Compressor struct {
	ffmpegPath string
}

// NewCompressor locates ffmpeg. A missing binary is not fatal here;
// Compress reports ErrCompressionUnavailable when actually needed.
func NewCompressor() *Compressor {
	path := findFFmpeg()
	if path == "" {
		log.Printf("[Compress] ffmpeg not found, compression will be unavailable")
	} else {
		log.Printf("[Compress] Using ffmpeg at %s", path)
	}
	return &Compressor{ffmpegPath: path}
}

func findFFmpeg() string {
	if path, err := exec.LookPath("ffmpeg"); err == nil {
		return path
	}
	for _, candidate := range []string{"/usr/bin/ffmpeg", "/usr/local/bin/ffmpeg", "/opt/homebrew/bin/ffmpeg"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Available reports whether a transcoding engine was found
func (c *Compressor) Available() bool {
	return c.ffmpegPath != ""
}

// ShouldCompress applies the size policy: WAV over 10MB, MP3 over 22MB
func ShouldCompress(filename string, sizeBytes int64) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".wav":
		return sizeBytes > wavCompressThreshold
	case ".mp3":
		return sizeBytes > mp3CompressThreshold
	default:
		return false
	}
}

// settingsFor picks compression aggressiveness by input size. Speech
// stays intelligible under heavy down-sampling, so the harshest settings
// are reserved for pathological inputs.
func settingsFor(sizeBytes int64) (bitrate string, frequency int) {
	sizeMB := float64(sizeBytes) / (1024 * 1024)
	switch {
	case sizeMB > 100:
		return "32k", 16000
	case sizeMB > 50:
		return "48k", 22050
	default:
		return "64k", 44100
	}
}

// Compress transcodes inputPath to a mono MP3 next to it. The caller
// owns the output artifact; on failure any partial output is removed
// before returning.
func (c *Compressor) Compress(ctx context.Context, inputPath string) (*CompressionResult, error) {
	if !c.Available() {
		return nil, ErrCompressionUnavailable
	}

	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat input: %w", err)
	}
	originalSize := info.Size()

	bitrate, frequency := settingsFor(originalSize)
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(filepath.Dir(inputPath), base+"-compressed.mp3")

	log.Printf("[Compress] %s (%.2fMB) -> %s: %s bitrate, %dHz, mono",
		inputPath, float64(originalSize)/1024/1024, outputPath, bitrate, frequency)

	cmd := exec.CommandContext(ctx, c.ffmpegPath,
		"-y",
		"-i", inputPath,
		"-ac", "1",
		"-ar", strconv.Itoa(frequency),
		"-b:a", bitrate,
		"-f", "mp3",
		outputPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		if rmErr := os.Remove(outputPath); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Printf("[Compress] Warning: failed to remove partial output %s: %v", outputPath, rmErr)
		}
		return nil, fmt.Errorf("ffmpeg failed: %w: %s", err, string(out))
	}

	compressedInfo, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat compressed output: %w", err)
	}
	compressedSize := compressedInfo.Size()
	ratio := (1 - float64(compressedSize)/float64(originalSize)) * 100

	log.Printf("[Compress] Complete: %.2fMB (%.1f%% reduction)",
		float64(compressedSize)/1024/1024, ratio)

	return &CompressionResult{
		OutputPath:       outputPath,
		OriginalSize:     originalSize,
		CompressedSize:   compressedSize,
		CompressionRatio: ratio,
	}, nil
}
