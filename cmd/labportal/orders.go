package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/WailSalutem-Health-Care/lab-portal/internal/normalize"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/orders"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/pagination"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/portal"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/results"
)

const pagerPrompt = "[n] siguiente  [p] anterior  [b texto] buscar  [d desde hasta] fechas  [q] salir > "

func ordersCmd(a *app) *cobra.Command {
	var (
		page, limit int
		filter      orders.Filter
		interactive bool
	)
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List lab orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			if interactive {
				return a.browseOrders(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), filter)
			}

			result, err := a.service.Orders(cmd.Context(), a.session, pagination.Params{Page: page, Limit: limit}, filter)
			if err != nil {
				return userError(err, portal.MsgOrdersFailed)
			}
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), result)
			}
			if err := a.printOrders(cmd.OutOrStdout(), result.Items); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pageFooter(result.Pagination, "órdenes"))
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", pagination.DefaultPage, "Page number")
	cmd.Flags().IntVar(&limit, "limit", 0, "Orders per page (default PAGE_SIZE)")
	cmd.Flags().StringVar(&filter.Search, "search", "", "Free-text search")
	cmd.Flags().StringVar(&filter.From, "from", "", "Earliest order date, YYYY-MM-DD")
	cmd.Flags().StringVar(&filter.To, "to", "", "Latest order date, YYYY-MM-DD")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Browse pages interactively")
	return cmd
}

func (a *app) printOrders(w io.Writer, items []normalize.Order) error {
	if len(items) == 0 {
		fmt.Fprintln(w, "No se encontraron órdenes")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ORDEN\tFECHA\tDOCUMENTO\tNÚMERO")
	for _, o := range items {
		date := "-"
		if o.Date != nil {
			date = results.FormatOrderDate(*o.Date, a.cfg.Location())
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			normalize.Value(o.ID, "-"), date, normalize.Value(o.Document, "-"), normalize.Value(o.Number, "-"))
	}
	return tw.Flush()
}

// browseOrders drives an orders.Pager from line commands read from in.
func (a *app) browseOrders(ctx context.Context, in io.Reader, out io.Writer, filter orders.Filter) error {
	pager, err := a.service.Pager(a.session)
	if err != nil {
		return userError(err, portal.MsgOrdersFailed)
	}
	pager.SetFilter(filter)

	scanner := bufio.NewScanner(in)
	reload := true
	for {
		if reload {
			if _, err := pager.Load(ctx); err != nil {
				if !errors.Is(err, orders.ErrStale) {
					fmt.Fprintln(out, portal.UserMessage(err, portal.MsgOrdersFailed))
				}
			} else {
				if err := a.printOrders(out, pager.Items()); err != nil {
					return err
				}
				fmt.Fprintln(out, pageFooter(pager.Meta(), "órdenes"))
			}
		}

		fmt.Fprint(out, pagerPrompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			reload = false
			continue
		}
		reload = true
		switch strings.ToLower(fields[0]) {
		case "q":
			return nil
		case "n":
			if !pager.Next() {
				fmt.Fprintln(out, "Ya está en la última página")
				reload = false
			}
		case "p":
			if !pager.Previous() {
				fmt.Fprintln(out, "Ya está en la primera página")
				reload = false
			}
		case "b":
			f := pager.Filter()
			f.Search = strings.Join(fields[1:], " ")
			pager.SetFilter(f)
		case "d":
			f := pager.Filter()
			f.From, f.To = "", ""
			if len(fields) > 1 {
				f.From = fields[1]
			}
			if len(fields) > 2 {
				f.To = fields[2]
			}
			pager.SetFilter(f)
		default:
			fmt.Fprintf(out, "Comando desconocido: %s\n", fields[0])
			reload = false
		}
	}
}
