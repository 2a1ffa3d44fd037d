package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/WailSalutem-Health-Care/lab-portal/internal/normalize"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/portal"
)

func loginCmd(a *app) *cobra.Command {
	var creds portal.Credentials
	cmd := &cobra.Command{
		Use:     "login",
		Short:   "Log in with an identity document",
		Example: "  labportal login --tipo CC --numero 1020304050 --fecha 1990-05-14",
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := a.service.Login(cmd.Context(), a.session, creds)
			if err != nil {
				return userError(err, portal.MsgLoginFailed)
			}
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), info)
			}
			if info.PersonaID != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Sesión iniciada (personaId %d)\n", *info.PersonaID)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Sesión iniciada")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&creds.Type, "tipo", "", "Document type (CC, CE, PA, TI)")
	cmd.Flags().StringVar(&creds.Number, "numero", "", "Document number")
	cmd.Flags().StringVar(&creds.BirthDate, "fecha", "", "Birth date, YYYY-MM-DD")
	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.service.Logout(cmd.Context(), a.session); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Sesión cerrada")
			return nil
		},
	}
}

func statusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a session is active",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := a.service.Status(a.session)
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), info)
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintf(tw, "Autenticado\t%s\n", yesNo(info.Authenticated))
			if info.PersonaID != nil {
				fmt.Fprintf(tw, "Persona\t%d\n", *info.PersonaID)
			}
			if info.ExpiresAt != nil {
				fmt.Fprintf(tw, "Expira\t%s\n", info.ExpiresAt.In(a.cfg.Location()).Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
}

func profileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show the patient profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			p, err := a.service.Profile(cmd.Context(), a.session)
			if err != nil {
				return userError(err, portal.MsgProfileFailed)
			}
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), p)
			}

			tw := newTable(cmd.OutOrStdout())
			for _, row := range []struct {
				label string
				value *string
			}{
				{"Nombre", p.FullName},
				{"Documento", p.Type},
				{"Número", p.Number},
				{"Nacimiento", p.BirthDate},
				{"Sexo", p.Sex},
				{"Celular", p.Mobile},
				{"Correo", p.Email},
				{"Dirección", p.Address},
				{"EPS", p.InsurerName},
			} {
				fmt.Fprintf(tw, "%s\t%s\n", row.label, normalize.Value(row.value, "-"))
			}
			return tw.Flush()
		},
	}
}
