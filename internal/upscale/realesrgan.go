package upscale

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

var commandContext = exec.CommandContext

// Option configures the CLI backend.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// CLI wraps the realesrgan-ncnn-vulkan command-line upscaler. The model
// only speaks files, so each call round-trips through PNGs in a scratch
// directory.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI backend using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "realesrgan-ncnn-vulkan"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

func (c *CLI) Name() string {
	return c.binary
}

// Available reports whether the upscaler binary is on PATH.
func (c *CLI) Available() bool {
	_, err := exec.LookPath(c.binary)
	return err == nil
}

// Upscale enlarges img by factor via the external model.
func (c *CLI) Upscale(ctx context.Context, img image.Image, factor int) (image.Image, error) {
	workDir, err := os.MkdirTemp("", "etdxpdf-sr-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	inPath := filepath.Join(workDir, "in.png")
	outPath := filepath.Join(workDir, "out.png")

	in, err := os.Create(inPath)
	if err != nil {
		return nil, fmt.Errorf("create model input: %w", err)
	}
	if err := png.Encode(in, img); err != nil {
		in.Close()
		return nil, fmt.Errorf("encode model input: %w", err)
	}
	if err := in.Close(); err != nil {
		return nil, fmt.Errorf("close model input: %w", err)
	}

	args := []string{"-i", inPath, "-o", outPath, "-s", strconv.Itoa(factor)}
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", c.binary, err, output)
	}

	out, err := os.Open(outPath)
	if err != nil {
		return nil, fmt.Errorf("open model output: %w", err)
	}
	defer out.Close()
	result, err := png.Decode(out)
	if err != nil {
		return nil, fmt.Errorf("decode model output: %w", err)
	}
	return result, nil
}

var _ Backend = (*CLI)(nil)
