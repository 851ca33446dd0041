package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/missingtv/missingtv/internal/config"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "missingtv %s (%s/%s)\n", config.Version, runtime.GOOS, runtime.GOARCH)
			return err
		},
	}
}
