package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/joaorura/etdxpdf/internal/cache"
	"github.com/joaorura/etdxpdf/internal/config"
	"github.com/joaorura/etdxpdf/internal/etdx"
	"github.com/joaorura/etdxpdf/internal/imaging"
	"github.com/joaorura/etdxpdf/internal/render"
	"github.com/joaorura/etdxpdf/internal/upscale"
)

var pdfCmd = &cobra.Command{
	Use:   "pdf [project.etdx]",
	Short: "Render an ETDX project to PDF",
	Long: `Render an editable photobook project into a print-ready PDF.
Each project page becomes one PDF page at the project's paper size,
with photos placed exactly where the editor shows them.`,
	Args: cobra.ExactArgs(1),
	RunE: runPdf,
}

func init() {
	rootCmd.AddCommand(pdfCmd)

	pdfCmd.Flags().StringP("output", "o", "", "Output PDF path (default: input name with .pdf)")
	pdfCmd.Flags().Int("dpi", 300, "Render resolution: 300 or 600")
	pdfCmd.Flags().String("format", "jpeg", "Embedded image format: jpeg or png")
	pdfCmd.Flags().Int("quality", 90, "JPEG quality (1-100)")
	pdfCmd.Flags().Bool("upscale", false, "Upscale low-resolution photos with the super-resolution backend")
	pdfCmd.Flags().String("cache-dir", "", "Override the upscale cache directory")
}

func runPdf(cmd *cobra.Command, args []string) error {
	input := args[0]

	dpi := mustGetInt(cmd, "dpi")
	if err := validateDPI(dpi); err != nil {
		return err
	}
	format, err := imaging.ParseFormat(mustGetString(cmd, "format"))
	if err != nil {
		return err
	}

	output := mustGetString(cmd, "output")
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ".pdf"
	}

	cfg := config.Load()
	if dir := mustGetString(cmd, "cache-dir"); dir != "" {
		cfg.CacheDir = dir
	}
	store, err := cache.New(cfg.CacheDir, cfg.Mode, true)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	backend := upscale.NewCLI(upscale.WithBinary(cfg.BackendCommand))
	pipeline := upscale.New(store, backend, cfg.BackendTimeout)
	renderer := render.New(pipeline, cfg.MaxPixels)

	project, err := etdx.Open(input)
	if err != nil {
		return fmt.Errorf("failed to open project: %w", err)
	}
	defer project.Close()

	bar := progressbar.NewOptions(len(project.PageIDs),
		progressbar.OptionSetDescription("Rendering pages"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("pages"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := render.Options{
		DPI:     dpi,
		Format:  format,
		Quality: mustGetInt(cmd, "quality"),
		Upscale: mustGetBool(cmd, "upscale"),
		Progress: func(completed, total int) {
			_ = bar.Set(completed)
		},
	}
	if err := renderer.RenderDocument(ctx, project, output, opts); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	_ = bar.Finish()

	fmt.Printf("\nWrote %s\n", output)
	return nil
}
