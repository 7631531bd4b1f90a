package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"github.com/zgsm-ai/llm-bridge/internal/bootstrap"
	"github.com/zgsm-ai/llm-bridge/internal/logic"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Print the models offered by the configured provider",
	Args:  cobra.NoArgs,
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, _ []string) error {
	_, c, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	svcCtx, err := bootstrap.NewServiceContext(c)
	if err != nil {
		return err
	}
	defer svcCtx.Stop()

	resp, err := logic.ListModels(cmd.Context(), svcCtx)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(resp)
}
