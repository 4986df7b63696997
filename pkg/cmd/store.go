package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/assetvault/pkg/configs"
	"github.com/yeisme/assetvault/pkg/internal/storage/gitstore"
)

var (
	storeCmd = &cobra.Command{
		Use:   "store",
		Short: "Versioned file store related commands",
	}

	storeHealthCmd = &cobra.Command{
		Use:   "health",
		Short: "check connectivity to the backing repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := gitstore.New(cmd.Context(), &configs.GetConfig().GitStore)
			if err != nil {
				return err
			}

			if err := client.HealthCheck(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "store: ok")

			return nil
		},
	}

	storeRegistryCmd = &cobra.Command{
		Use:   "registry",
		Short: "print the raw registry document and its version token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &configs.GetConfig().GitStore

			client, err := gitstore.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			data, sha, err := client.ReadFile(cmd.Context(), cfg.RegistryPath)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			fmt.Fprintln(cmd.ErrOrStderr(), "sha:", sha)

			return nil
		},
	}
)

// registerStoreCommands 注册文件存储相关命令.
func registerStoreCommands() {
	rootCmd.AddCommand(storeCmd)

	storeCmd.AddCommand(storeHealthCmd)
	storeCmd.AddCommand(storeRegistryCmd)
}
