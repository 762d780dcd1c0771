package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/erazemk/estatedesk/internal/model"
	"github.com/erazemk/estatedesk/internal/service"
)

// cliActor attributes CLI mutations to the local OS user.
func cliActor(cmd *cobra.Command) context.Context {
	name := os.Getenv("USER")
	if name == "" {
		name = "cli"
	}
	return service.WithActor(cmd.Context(), name+"@cli")
}

func newItemCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Inspect and create items",
	}
	cmd.AddCommand(
		newItemCreateCommand(ctx),
		newItemShowCommand(ctx),
		newItemEventsCommand(ctx),
	)
	return cmd
}

func newItemCreateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "create <job-id>",
		Short: "Create an empty draft item under a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(svc *service.Service) error {
				it, err := svc.CreateItem(cliActor(cmd), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), it.ID)
				return nil
			})
		},
	}
}

func newItemShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <item-id>",
		Short: "Show an item's photo groups, proposals and approvals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(svc *service.Service) error {
				it, err := svc.FetchItem(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Item %s (job %s)\n", it.ID, it.JobID)
				fmt.Fprintf(out, "Status: %s", it.Status)
				if it.ReopenReason != "" {
					fmt.Fprintf(out, " (reopened: %s)", it.ReopenReason)
				}
				fmt.Fprintf(out, "\nPhotos: %d\n\n", len(it.Photos))
				fmt.Fprintln(out, renderTable(
					[]string{"#", "Photos", "Title", "State", "Price", "Disposition"},
					itemRows(it),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
}

// itemRows summarizes each photo group of it.
func itemRows(it *model.Item) [][]string {
	rows := make([][]string, 0, len(it.PhotoGroups))
	for _, g := range it.PhotoGroups {
		title, state, price := g.Title, "unanalyzed", ""
		if p, ok := it.Proposal(g.ItemNumber); ok {
			title, state = p.Title, "pending review"
			if p.Price > 0 {
				price = "~" + formatPrice(p.Price)
			}
		}
		disposition := ""
		if a, ok := it.Approved(g.ItemNumber); ok {
			title, state, price = a.Title, "approved", formatPrice(a.Price)
			if len(a.PhotoIndices) > 0 {
				disposition = it.DispositionOf(a.PhotoIndices[0])
			}
			if a.EstateSalePrice != nil {
				disposition += " " + formatPrice(*a.EstateSalePrice)
			}
		}
		photos := strconv.Itoa(g.StartIndex)
		if g.EndIndex != g.StartIndex {
			photos += "-" + strconv.Itoa(g.EndIndex)
		}
		rows = append(rows, []string{strconv.Itoa(g.ItemNumber), photos, title, state, price, disposition})
	}
	return rows
}

func formatPrice(v float64) string {
	return "$" + strconv.FormatFloat(v, 'f', 2, 64)
}

func newItemEventsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "events <item-id>",
		Short: "Show an item's audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(svc *service.Service) error {
				events, err := svc.ListEvents(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				rows := make([][]string, len(events))
				for i, e := range events {
					rows[i] = []string{e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Kind, e.Actor, e.Detail}
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"When", "Event", "Actor", "Detail"}, rows, nil))
				return nil
			})
		},
	}
}
