package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"neorecon/internal/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "打印版本信息",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Info()
			fmt.Fprintf(cmd.OutOrStdout(), "neorecon %s (api %s)\n", info["version"], info["api_version"])
			fmt.Fprintf(cmd.OutOrStdout(), "  build time: %s\n", info["build_time"])
			fmt.Fprintf(cmd.OutOrStdout(), "  git commit: %s\n", info["git_commit"])
			fmt.Fprintf(cmd.OutOrStdout(), "  go version: %s\n", info["go_version"])
		},
	}
}
