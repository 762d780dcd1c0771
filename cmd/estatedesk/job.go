package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erazemk/estatedesk/internal/model"
	"github.com/erazemk/estatedesk/internal/service"
)

func newJobCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Manage estate-sale jobs",
	}
	cmd.AddCommand(
		newJobCreateCommand(ctx),
		newJobListCommand(ctx),
		newJobToggleSaleCommand(ctx),
		newJobAdvanceCommand(ctx),
	)
	return cmd
}

// withService opens the database and runs fn with a service over it.
func (c *commandContext) withService(cmd *cobra.Command, fn func(*service.Service) error) error {
	database, cfg, err := c.openDB()
	if err != nil {
		return err
	}
	defer database.Close()
	svc, err := newService(cmd.Context(), cfg, database)
	if err != nil {
		return err
	}
	return fn(svc)
}

func newJobCreateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a job in the intake stage",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(svc *service.Service) error {
				job, err := svc.CreateJob(cliActor(cmd), strings.Join(args, " "))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), job.ID)
				return nil
			})
		},
	}
}

func newJobListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(svc *service.Service) error {
				jobs, err := svc.ListJobs(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "Stage", "Online sale"},
					jobRows(jobs),
					nil,
				))
				return nil
			})
		},
	}
}

func jobRows(jobs []model.Job) [][]string {
	rows := make([][]string, len(jobs))
	for i, j := range jobs {
		rows[i] = []string{j.ID, j.Name, j.Stage, yesNo(j.OnlineSaleActive)}
	}
	return rows
}

func newJobToggleSaleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle-sale <job-id>",
		Short: "Flip the online-sale flag of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(svc *service.Service) error {
				active, err := svc.ToggleOnlineSale(cliActor(cmd), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "online sale active: %s\n", yesNo(active))
				return nil
			})
		},
	}
}

func newJobAdvanceCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "advance <job-id> <stage>",
		Short: "Move a job forward to a later stage",
		Long:  "Stages, in order: " + strings.Join(model.Stages, ", ") + ".",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(svc *service.Service) error {
				job, err := svc.AdvanceStage(cliActor(cmd), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "job %s is now in %s\n", job.ID, job.Stage)
				return nil
			})
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
