package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/me/webextools/internal/csvutil"
	"github.com/me/webextools/internal/scim"
	"github.com/me/webextools/internal/store"
	"github.com/me/webextools/internal/webex"
	"github.com/me/webextools/pkg/model"
)

type disableUsersOptions struct {
	File   string
	Column string
	Report bool
	DryRun bool
}

func newDisableUsersCmd() *cobra.Command {
	var opts disableUsersOptions

	cmd := &cobra.Command{
		Use:   "disable-users",
		Short: "Bulk-disable Webex accounts listed in a CSV file",
		Long: "Read email addresses from a CSV column, look the accounts up in the " +
			"SCIM directory, and deactivate every account that is still active.",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := webex.ResolveToken(promptToken)
			if err != nil {
				return err
			}
			orgID, err := webex.OrgIDFromToken(token)
			if err != nil {
				return fmt.Errorf("derive org id: %w", err)
			}

			session := newSession(flagIdentityURL, token)
			client := scim.NewClient(session, orgID, logger)

			outcomes, err := runDisableUsers(cmd.Context(), client, opts, os.Stdout)
			if err != nil {
				return err
			}

			if opts.Report {
				path, err := writeDisableReport(outcomes)
				if err != nil {
					return fmt.Errorf("write report: %w", err)
				}
				fmt.Printf("Report written to %s\n", path)
			}

			if !opts.DryRun {
				if err := recordRun(cmd.Context(), flagDBPath, opts, outcomes); err != nil {
					// History is best-effort; the disables already happened.
					logger.Warn("record run", "error", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "CSV file with accounts to disable (required)")
	cmd.Flags().StringVarP(&opts.Column, "column", "c", "email", "CSV column holding the email addresses")
	cmd.Flags().BoolVarP(&opts.Report, "report", "r", false, "Write a JSON report of the outcomes")
	cmd.Flags().BoolVarP(&opts.DryRun, "dry-run", "d", false, "Resolve accounts but do not deactivate anything")
	cmd.MarkFlagRequired("file")

	return cmd
}

// runDisableUsers reads the CSV, resolves each email against the directory
// in a single listing pass, and deactivates the active matches in CSV order.
func runDisableUsers(ctx context.Context, client *scim.Client, opts disableUsersOptions, out io.Writer) ([]*model.RunOutcome, error) {
	emails, err := csvutil.ReadColumn(opts.File, opts.Column)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", opts.File, err)
	}
	if len(emails) == 0 {
		fmt.Fprintln(out, "No accounts listed.")
		return nil, nil
	}

	wanted := make(map[string]bool, len(emails))
	for _, e := range emails {
		wanted[strings.ToLower(e)] = true
	}

	// One pass over the directory instead of one lookup per account.
	found := make(map[string]*scim.User, len(emails))
	it := client.ListUsers(ctx, "")
	for it.Next() {
		u := it.User()
		key := strings.ToLower(u.PrimaryEmail())
		if wanted[key] {
			found[key] = u
		}
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	var outcomes []*model.RunOutcome
	for _, email := range emails {
		o := disableOne(ctx, client, found[strings.ToLower(email)], email, opts.DryRun)
		outcomes = append(outcomes, o)
		if o.Reason != "" {
			fmt.Fprintf(out, "[%s] %s: %s\n", o.Status, o.Email, o.Reason)
		} else {
			fmt.Fprintf(out, "[%s] %s\n", o.Status, o.Email)
		}
	}
	return outcomes, nil
}

func disableOne(ctx context.Context, client *scim.Client, u *scim.User, email string, dryRun bool) *model.RunOutcome {
	o := &model.RunOutcome{Email: email}
	switch {
	case u == nil:
		o.Status = model.OutcomeSkipped
		o.Reason = "not found"
	case !u.Active:
		o.PersonID = u.ID
		o.DisplayName = u.DisplayName
		o.Status = model.OutcomeSkipped
		o.Reason = "already inactive"
	case dryRun:
		o.PersonID = u.ID
		o.DisplayName = u.DisplayName
		o.Status = model.OutcomeSkipped
		o.Reason = "dry run"
	default:
		o.PersonID = u.ID
		o.DisplayName = u.DisplayName
		updated, err := client.UpdateUserPatch(ctx, u.ID, scim.DeactivatePatch(), "")
		switch {
		case err != nil:
			o.Status = model.OutcomeFailed
			o.Reason = err.Error()
		case updated.Active:
			o.Status = model.OutcomeFailed
			o.Reason = "still active after update"
		default:
			o.Status = model.OutcomeSuccess
		}
	}
	return o
}

// writeDisableReport dumps the outcomes to a timestamped JSON file in the
// working directory and returns its path.
func writeDisableReport(outcomes []*model.RunOutcome) (string, error) {
	path := fmt.Sprintf("disabled_users_report.%s.json", time.Now().Format("20060102T150405"))
	data, err := json.MarshalIndent(outcomes, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// recordRun persists the run and its outcomes to the history store.
func recordRun(ctx context.Context, dbPath string, opts disableUsersOptions, outcomes []*model.RunOutcome) error {
	st, err := store.NewSQLiteStore(dbPath, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	run := &model.Run{
		ID:        uuid.NewString(),
		Command:   "disable-users",
		File:      opts.File,
		DryRun:    opts.DryRun,
		CreatedAt: time.Now().UTC(),
	}
	for _, o := range outcomes {
		o.RunID = run.ID
		switch o.Status {
		case model.OutcomeSuccess:
			run.Succeeded++
		case model.OutcomeFailed:
			run.Failed++
		default:
			run.Skipped++
		}
	}
	if err := st.CreateRun(ctx, run); err != nil {
		return err
	}
	return st.AddOutcomes(ctx, outcomes)
}
