package cmd

import (
	"github.com/spf13/cobra"
)

const AppName = "diskdigler"

func Execute() error {
	rootCmd := &cobra.Command{
		Use:   AppName,
		Short: AppName + " - disk image decoder",
	}

	rootCmd.AddCommand(DefineDecodeCommand())
	rootCmd.AddCommand(DefineInspectCommand())

	return rootCmd.Execute()
}
