package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/heic-converter/internal/batch"
	"github.com/pdiddy/heic-converter/internal/tui"
	"github.com/pdiddy/heic-converter/pkg/types"
)

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := batchConfig()
	if err != nil {
		return err
	}
	conv, err := newConverter(cfg.Decoder)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		return tui.Run(cfg, func(ctx context.Context, paths []string, c types.BatchConfig, w io.Writer) batch.Result {
			return batch.Run(ctx, conv, paths, c, w)
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := batch.Run(ctx, conv, args, cfg, os.Stdout)
	if result.HasFailures() {
		return fmt.Errorf("%d file(s) failed conversion", result.Failed)
	}
	return nil
}

func batchConfig() (types.BatchConfig, error) {
	conv, err := conversionConfig()
	if err != nil {
		return types.BatchConfig{}, err
	}
	return types.BatchConfig{
		ConversionConfig: conv,
		Recursive:        viper.GetBool("recursive"),
		OutputDir:        viper.GetString("output_dir"),
		CreateSubfolder:  !viper.GetBool("no_subfolder"),
		Workers:          viper.GetInt("workers"),
	}, nil
}

func init() {
	rootCmd.Flags().BoolP("recursive", "r", false, "include subfolders of folder arguments")
	rootCmd.Flags().StringP("output", "o", "", "write every JPEG to this directory")
	rootCmd.Flags().Bool("no-subfolder", false, `write JPEGs next to their sources instead of a "jpg files" folder`)
	rootCmd.Flags().Int("workers", 1, "number of files converted concurrently")
}
