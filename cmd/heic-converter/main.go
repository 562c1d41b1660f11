// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the heic-converter CLI.
// The root command converts files and folders given as arguments, or opens
// the interactive menu when run without any. serve starts the web upload
// service; sessions and reap inspect and expire its session directories.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/heic-converter/internal/heic"
	"github.com/pdiddy/heic-converter/internal/imagetool"
	"github.com/pdiddy/heic-converter/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the heic-converter CLI.
var rootCmd = &cobra.Command{
	Use:   "heic-converter [paths...]",
	Short: "Convert HEIC/HEIF images to JPEG",
	Long: `heic-converter converts HEIC/HEIF images to JPEG.

Pass files or folders to convert them in place. Folders are scanned for
.heic and .heif files (any case); with -r their subfolders are included.
By default each output lands in a "jpg files" folder next to its source.
Run without arguments for an interactive menu, or use "serve" to start
the web upload service.`,
	Args:              cobra.ArbitraryArgs,
	SilenceUsage:      true,
	PersistentPreRunE: bindConfigFlags,
	RunE:              runConvert,
}

// configKeys maps flag names to configuration keys. Keys match the yaml
// tags of the config structs in pkg/types.
var configKeys = map[string]string{
	"quality":       "quality",
	"decoder":       "decoder",
	"recursive":     "recursive",
	"output":        "output_dir",
	"no-subfolder":  "no_subfolder",
	"workers":       "workers",
	"addr":          "server.addr",
	"temp-dir":      "server.temp_dir",
	"max-upload":    "server.max_upload_bytes",
	"session-ttl":   "server.session_ttl",
	"reap-interval": "server.reap_interval",
}

// bindConfigFlags binds the running command's flags to their config keys,
// so a flag set on the command line overrides the config file and
// environment while an unset flag falls back to them.
func bindConfigFlags(cmd *cobra.Command, args []string) error {
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := configKeys[f.Name]
		if !ok || err != nil {
			return
		}
		if bindErr := viper.BindPFlag(key, f); bindErr != nil {
			err = fmt.Errorf("binding flag %s: %w", f.Name, bindErr)
		}
	})
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./heic-converter.yaml or ~/.config/heic-converter/heic-converter.yaml)")
	rootCmd.PersistentFlags().IntP("quality", "q", types.DefaultQuality, "JPEG quality (1-100)")
	rootCmd.PersistentFlags().String("decoder", string(types.DecoderNative), "HEIC decoder: native, magick, or auto")
}

func initConfig() {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("heic-converter")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "heic-converter"))
		}
	}

	viper.SetEnvPrefix("HEIC_CONVERTER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// conversionConfig reads the settings shared by every entry point.
// Quality is handed to the JPEG encoder as given; it clamps values
// outside 1-100.
func conversionConfig() (types.ConversionConfig, error) {
	cfg := types.ConversionConfig{
		Quality: viper.GetInt("quality"),
		Decoder: types.DecoderBackend(viper.GetString("decoder")),
	}
	switch cfg.Decoder {
	case "", types.DecoderNative, types.DecoderMagick, types.DecoderAuto:
		return cfg, nil
	default:
		return cfg, fmt.Errorf("unsupported decoder %q: use native, magick, or auto", cfg.Decoder)
	}
}

// newConverter builds the conversion primitive for the configured decoder.
func newConverter(backend types.DecoderBackend) (*heic.Converter, error) {
	dec, err := heic.NewDecoder(backend, func() (heic.ToolDecoder, error) {
		return imagetool.Detect()
	})
	if err != nil {
		return nil, err
	}
	return heic.NewConverter(dec), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
