package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "labportal",
		Short:        "Patient lab results portal",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			channel := channelCLI
			if cmd.Annotations["channel"] == channelAPI {
				channel = channelAPI
			}
			return a.setup(cmd.Context(), channel)
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Path to a dotenv file")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "Print JSON instead of tables")

	root.AddCommand(loginCmd(a))
	root.AddCommand(logoutCmd(a))
	root.AddCommand(statusCmd(a))
	root.AddCommand(profileCmd(a))
	root.AddCommand(ordersCmd(a))
	root.AddCommand(resultsCmd(a))
	root.AddCommand(notificationsCmd(a))
	root.AddCommand(serveCmd(a))
	return root
}
