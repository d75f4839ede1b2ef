package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "etdxpdf",
	Short: "Convert photobook projects between ETDX and PDF",
	Long: `etdxpdf converts editable photobook projects (.etdx) into print-ready
PDF documents and turns existing PDFs back into editable projects.
Photo placement follows the editor's canvas coordinates, with optional
super-resolution upscaling for photos that would print below target DPI.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
