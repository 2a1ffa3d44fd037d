package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/WailSalutem-Health-Care/lab-portal/internal/normalize"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/portal"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/report"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/results"
)

func resultsCmd(a *app) *cobra.Command {
	var export string
	cmd := &cobra.Command{
		Use:   "results <order-id>",
		Short: "Show the results of one order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			ctx := cmd.Context()
			orderID := args[0]

			if export != "" {
				return a.exportResults(cmd, orderID, export)
			}

			view, err := a.service.OrderResults(ctx, a.session, orderID)
			if err != nil {
				return userError(err, portal.MsgResultsFailed)
			}
			card := a.service.PatientCard(ctx, a.session, view)
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"resultados": view,
					"paciente":   card,
					"vacio":      view.Empty(),
				})
			}
			return printResults(cmd.OutOrStdout(), view, card)
		},
	}
	cmd.Flags().StringVar(&export, "export", "", "Write the results to an xlsx file instead of printing them")
	return cmd
}

func (a *app) exportResults(cmd *cobra.Command, orderID, path string) error {
	if path == "." {
		path = report.Filename(orderID)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := a.service.ExportResults(cmd.Context(), a.session, orderID, f); err != nil {
		f.Close()
		os.Remove(path)
		return userError(err, portal.MsgResultsFailed)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Resultados exportados a %s\n", path)
	return nil
}

func printResults(w io.Writer, view *results.View, card results.PatientCard) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Paciente\t%s\n", card.Name)
	fmt.Fprintf(tw, "Identificación\t%s\n", card.Identification)
	fmt.Fprintf(tw, "Sexo / Edad\t%s\n", card.SexAge)
	fmt.Fprintf(tw, "Administradora\t%s\n", card.Insurer)
	fmt.Fprintf(tw, "Teléfono\t%s\n", card.Phone)
	fmt.Fprintf(tw, "Médico\t%s\n", card.Physician)
	fmt.Fprintf(tw, "Fecha de orden\t%s\n", card.OrderDate)
	if err := tw.Flush(); err != nil {
		return err
	}

	if view.Empty() {
		fmt.Fprintln(w, "\nNo hay resultados para esta orden")
		return nil
	}

	for _, g := range view.Groups {
		fmt.Fprintf(w, "\n== %s ==\n", g.Name)
		if g.PrimaryProcedure != "" {
			fmt.Fprintln(w, g.PrimaryProcedure)
		}
		tw := newTable(w)
		fmt.Fprintln(tw, "PRUEBA\tRESULTADO\tUNIDAD\tREFERENCIA")
		for _, r := range g.Rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				normalize.Value(r.Name, "-"), r.Value, normalize.Value(r.Unit, ""), r.ReferenceRange)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(view.Flat) > 0 {
		fmt.Fprintln(w)
		tw := newTable(w)
		fmt.Fprintln(tw, "CÓDIGO\tPRUEBA\tRESULTADO\tUNIDAD\tREFERENCIA")
		for _, r := range view.Flat {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Code, r.Name, r.Value, r.Unit, r.ReferenceRange)
		}
		return tw.Flush()
	}
	return nil
}
