package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gatelog/internal/filter"
	"gatelog/internal/roster"
)

func newPeopleCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "people",
		Short: "Manage the roster",
	}
	cmd.AddCommand(newPeopleListCmd(opts), newPeopleAddCmd(opts), newPeopleDeleteCmd(opts))
	return cmd
}

func addCriteriaFlags(cmd *cobra.Command, c *filter.Criteria) {
	cmd.Flags().StringVar(&c.Search, "search", "", "match name, enrollment number (and email for people)")
	cmd.Flags().StringVar(&c.Course, "course", "", "only this course")
	cmd.Flags().StringVar(&c.Branch, "branch", "", "only this branch")
	cmd.Flags().StringVar(&c.Semester, "semester", "", "only this semester")
}

func newPeopleListCmd(opts *rootOptions) *cobra.Command {
	var c filter.Criteria
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered people, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			people, err := a.roster.List(cmd.Context(), c)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tENROLLMENT\tCOURSE\tBRANCH\tSEM\tEMAIL\tCREATED\tSYNC")
			for _, p := range people {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					p.ID, p.Name, p.EnrollmentNo, p.Course, p.Branch, p.Semester, p.Email,
					formatTime(p.CreatedAt, a.cfg.Location()), p.SyncStatus)
			}
			return tw.Flush()
		},
	}
	addCriteriaFlags(cmd, &c)
	return cmd
}

func newPeopleAddCmd(opts *rootOptions) *cobra.Command {
	var in roster.Input
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a person and generate the QR credential",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			p, err := a.roster.AddPerson(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s has been registered successfully with QR code generated (id %s)\n", p.Name, p.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Name, "name", "", "full name")
	f.StringVar(&in.EnrollmentNo, "enrollment", "", "enrollment number")
	f.StringVar(&in.Course, "course", "", "course")
	f.StringVar(&in.Branch, "branch", "", "branch")
	f.StringVar(&in.Semester, "semester", "", "semester")
	f.StringVar(&in.Email, "email", "", "email address")
	f.StringVar(&in.Phone, "phone", "", "phone number")
	return cmd
}

func newPeopleDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <person-id>",
		Short: "Remove a person from the local store (the remote copy is kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			p, err := a.roster.DeletePerson(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s has been removed from local storage\n", p.Name)
			return nil
		},
	}
}

func newBadgeCmd(opts *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "badge <person-id>",
		Short: "Write a person's QR credential as PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			data, name, err := a.roster.DownloadQR(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if out == "" {
				out = name
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default <name>_qr_code.png)")
	return cmd
}
