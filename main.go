package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zgsm-ai/llm-bridge/internal/config"
	"github.com/zgsm-ai/llm-bridge/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "llm-bridge",
	Short: "Vendor-neutral LLM chat bridge",
	Long:  "llm-bridge serves one chat API in front of OpenAI-compatible and Gemini model backends.",
}

func init() {
	rootCmd.PersistentFlags().StringP("file", "f", "etc/llm-bridge.yaml", "the config file")
}

// main is the entry point of the llm-bridge service
func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config named by --file and applies its log settings
func loadConfig(cmd *cobra.Command) (*config.Loader, config.Config, error) {
	path, _ := cmd.Flags().GetString("file")
	loader := config.NewLoader(path)
	c, err := loader.Load()
	if err != nil {
		return nil, c, err
	}
	if err := logger.Init(logOptions(c.Log)); err != nil {
		return nil, c, err
	}
	return loader, c, nil
}

func logOptions(c config.LogConfig) logger.Options {
	return logger.Options{
		Level:      c.Level,
		FilePath:   c.FilePath,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	}
}
