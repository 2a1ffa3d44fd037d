package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/WailSalutem-Health-Care/lab-portal/internal/pagination"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/portal"
)

func notificationsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notificaciones"},
		Short:   "List and manage notifications",
	}

	var page int
	list := &cobra.Command{
		Use:   "list",
		Short: "List notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			result, err := a.service.Notifications(cmd.Context(), a.session,
				pagination.Params{Page: page, Limit: portal.NotificationPageSize})
			if err != nil {
				return userError(err, portal.MsgNotifyFailed)
			}
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), result)
			}
			if len(result.Items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tiene notificaciones")
				return nil
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tTÍTULO\tMENSAJE\tLEÍDA")
			for _, n := range result.Items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					recordText(n, "id", "idNotificacion"),
					recordText(n, "titulo", "title"),
					recordText(n, "mensaje", "message"),
					recordText(n, "leida", "read"))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			params := pagination.NewParams(page, portal.NotificationPageSize)
			fmt.Fprintln(cmd.OutOrStdout(), pageFooter(params.CalculateMeta(result.Total), "notificaciones"))
			return nil
		},
	}
	list.Flags().IntVar(&page, "page", pagination.DefaultPage, "Page number")

	unread := &cobra.Command{
		Use:   "unread",
		Short: "Show the unread notification count",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			total, err := a.service.UnreadCount(cmd.Context(), a.session)
			if err != nil {
				return userError(err, portal.MsgNotifyFailed)
			}
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]int{"total": total})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d sin leer\n", total)
			return nil
		},
	}

	read := &cobra.Command{
		Use:   "read <notification-id>",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			if err := a.service.MarkRead(cmd.Context(), a.session, args[0]); err != nil {
				return userError(err, portal.MsgNotifyFailed)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Notificación marcada como leída")
			return nil
		},
	}

	cmd.AddCommand(list, unread, read)
	return cmd
}
