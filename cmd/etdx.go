package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/joaorura/etdxpdf/internal/cache"
	"github.com/joaorura/etdxpdf/internal/config"
	"github.com/joaorura/etdxpdf/internal/etdxgen"
	"github.com/joaorura/etdxpdf/internal/geometry"
	"github.com/joaorura/etdxpdf/internal/paper"
)

var etdxCmd = &cobra.Command{
	Use:   "etdx [document.pdf]",
	Short: "Convert a PDF into an editable ETDX project",
	Long: `Rasterize each PDF page and wrap the result in an editable photobook
project. The paper size is detected from the first page unless given
explicitly; run "etdxpdf sizes" for the available ids.`,
	Args: cobra.ExactArgs(1),
	RunE: runEtdx,
}

func init() {
	rootCmd.AddCommand(etdxCmd)

	etdxCmd.Flags().StringP("output", "o", "", "Output project path (default: derived from input and paper size)")
	etdxCmd.Flags().String("paper-size", "auto", "Paper size id, or auto to detect from page 1")
	etdxCmd.Flags().String("fit-mode", "fit", "Page placement: fit (whole page visible) or fill (cover the canvas)")
	etdxCmd.Flags().Int("dpi", 300, "Rasterization resolution")
	etdxCmd.Flags().Bool("upscale", false, "Resample page rasters toward double the target DPI")
	etdxCmd.Flags().String("cache-dir", "", "Override the upscale cache directory")
}

func parseFitMode(s string) (geometry.FitMode, error) {
	switch s {
	case "fit":
		return geometry.FitModeFit, nil
	case "fill":
		return geometry.FitModeFill, nil
	default:
		return "", fmt.Errorf("unknown fit mode %q: must be fit or fill", s)
	}
}

func runEtdx(cmd *cobra.Command, args []string) error {
	input := args[0]

	dpi := mustGetInt(cmd, "dpi")
	if err := validateDPI(dpi); err != nil {
		return err
	}
	fitMode, err := parseFitMode(mustGetString(cmd, "fit-mode"))
	if err != nil {
		return err
	}
	paperSize := mustGetString(cmd, "paper-size")

	cfg := config.Load()
	if dir := mustGetString(cmd, "cache-dir"); dir != "" {
		cfg.CacheDir = dir
	}
	store, err := cache.New(cfg.CacheDir, cfg.Mode, true)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}

	gen, err := etdxgen.New(input, store)
	if err != nil {
		return err
	}

	output := mustGetString(cmd, "output")
	if output == "" {
		spec, err := resolveSpec(gen, paperSize)
		if err != nil {
			return err
		}
		stem := strings.TrimSuffix(input, filepath.Ext(input))
		output = fmt.Sprintf("%s_%s.etdx", stem, spec.PaperSizeID)
	}

	total, err := gen.NumPages()
	if err != nil {
		return err
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Converting pages"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("pages"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	opts := etdxgen.Options{
		DPI:       dpi,
		PaperSize: paperSize,
		FitMode:   fitMode,
		Upscale:   mustGetBool(cmd, "upscale"),
		Progress: func(completed, total int) {
			_ = bar.Set(completed)
		},
	}
	if err := gen.Generate(output, opts); err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}
	_ = bar.Finish()

	fmt.Printf("\nWrote %s\n", output)
	return nil
}

func resolveSpec(gen *etdxgen.Generator, paperSize string) (paper.Spec, error) {
	if paperSize == "auto" {
		return gen.DetectPaper()
	}
	return paper.ByID(paperSize)
}
