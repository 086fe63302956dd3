package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gatelog/internal/apperr"
	"gatelog/internal/filter"
	"gatelog/internal/model"
)

func newEntriesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entries",
		Short: "Inspect the activity log",
	}
	var q filter.EntryQuery
	list := &cobra.Command{
		Use:   "list",
		Short: "Show the 10 most recent matching entries and exits",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			act, err := a.tracker.Activity(cmd.Context(), q)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if act.Total == 0 {
				fmt.Fprintln(out, "No activity yet")
				return nil
			}
			if act.Matched == 0 {
				fmt.Fprintln(out, "No results match your filters")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tNAME\tENROLLMENT\tCOURSE\tBRANCH\tSEM\tDATE\tTIME\tSYNC")
			for _, e := range act.Entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					e.ID, e.Type, e.PersonName, e.EnrollmentNo, e.Course, e.Branch, e.Semester, e.Date, e.Time, e.SyncStatus)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "showing %d of %d matches (%d total)\n", len(act.Entries), act.Matched, act.Total)
			return nil
		},
	}
	addCriteriaFlags(list, &q.Criteria)
	list.Flags().StringVar(&q.Type, "type", filter.TypeAll, "all, entry or exit")
	cmd.AddCommand(list)
	return cmd
}

func newExitCmd(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "exit <entry-id>",
		Short: "Record an exit with the same details as an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			e, err := a.tracker.QuickExit(cmd.Context(), args[0], yes)
			if apperr.IsCode(err, apperr.CodeConfirmationRequired) {
				ok, cerr := confirm(opts.stdin(cmd), cmd.OutOrStdout(), apperr.As(err, "").Message)
				if cerr != nil {
					return cerr
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "cancelled")
					return nil
				}
				e, err = a.tracker.QuickExit(cmd.Context(), args[0], true)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s has been marked as exited at %s %s\n", e.PersonName, e.Date, e.Time)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newSyncCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Remote synchronisation",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Count records per sync status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			counts, err := a.repo.SyncCounts(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tPENDING\tSYNCED\tFAILED")
			for _, row := range []struct {
				kind string
				m    map[model.SyncStatus]int
			}{{"entries", counts.Entries}, {"people", counts.People}} {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", row.kind, row.m[model.SyncPending], row.m[model.SyncSynced], row.m[model.SyncFailed])
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if a.queue != nil {
				n, err := a.queue.Len(cmd.Context())
				if err != nil {
					return fmt.Errorf("queue length: %w", err)
				}
				fmt.Fprintf(out, "queued messages: %d\n", n)
			}
			return nil
		},
	})
	return cmd
}
