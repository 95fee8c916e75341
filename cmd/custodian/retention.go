package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/custodian/pkg/retention"
	"mercator-hq/custodian/pkg/retention/files"
	"mercator-hq/custodian/pkg/telemetry/logging"
)

var retentionFlags struct {
	format        string
	period        int
	unit          string
	target        string
	justification string
	user          string
	days          int
	folder        int64
}

var retentionCmd = &cobra.Command{
	Use:   "retention",
	Short: "Manage per-item retentions",
	Long: `Manage the retention records of individual files and folders.

An item is given either as its numeric file id or as an absolute tree path
such as /__groupfolders/3/contracts/2024.pdf.

Subcommands:
  set       - Put an item under its group folder's policy
  get       - Show an item's retention
  remove    - Remove an item's retention
  overview  - List the retentions a user created
  upcoming  - List retentions expiring soon
  check     - Classify paths of a group folder against existing retentions`,
}

var retentionSetCmd = &cobra.Command{
	Use:   "set ITEM",
	Short: "Set or replace an item's retention",
	Example: `  custodian retention set 1042 --period 30 --unit days --user alice
  custodian retention set /__groupfolders/3/contracts --period 5 --unit years \
    --justification "statutory" --user bob`,
	Args: cobra.ExactArgs(1),
	RunE: runAppCommand("retention set", setRetention),
}

var retentionGetCmd = &cobra.Command{
	Use:   "get ITEM",
	Short: "Show an item's retention",
	Args:  cobra.ExactArgs(1),
	RunE:  runAppCommand("retention get", getRetention),
}

var retentionRemoveCmd = &cobra.Command{
	Use:   "remove ITEM",
	Short: "Remove an item's retention",
	Args:  cobra.ExactArgs(1),
	RunE:  runAppCommand("retention remove", removeRetention),
}

var retentionOverviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "List the retentions a user created",
	Args:  cobra.NoArgs,
	RunE:  runAppCommand("retention overview", retentionOverview),
}

var retentionUpcomingCmd = &cobra.Command{
	Use:   "upcoming",
	Short: "List active retentions expiring within --days",
	Args:  cobra.NoArgs,
	RunE:  runAppCommand("retention upcoming", upcomingRetentions),
}

var retentionCheckCmd = &cobra.Command{
	Use:     "check PATH...",
	Short:   "Classify folder-relative paths against existing retentions",
	Example: `  custodian retention check --folder 3 contracts contracts/2024 contracts/2024/a.pdf`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runAppCommand("retention check", checkRetentions),
}

func init() {
	rootCmd.AddCommand(retentionCmd)
	retentionCmd.AddCommand(retentionSetCmd, retentionGetCmd, retentionRemoveCmd,
		retentionOverviewCmd, retentionUpcomingCmd, retentionCheckCmd)

	for _, c := range []*cobra.Command{retentionSetCmd, retentionGetCmd, retentionOverviewCmd, retentionUpcomingCmd, retentionCheckCmd} {
		c.Flags().StringVarP(&retentionFlags.format, "format", "f", "text", "output format (text, json, csv)")
	}

	retentionSetCmd.Flags().IntVar(&retentionFlags.period, "period", 0, "retention period")
	retentionSetCmd.Flags().StringVar(&retentionFlags.unit, "unit", "days", "period unit (days, weeks, months, years)")
	retentionSetCmd.Flags().StringVar(&retentionFlags.target, "target", "", "override the policy's target path")
	retentionSetCmd.Flags().StringVar(&retentionFlags.justification, "justification", "", "reason for the retention")
	retentionSetCmd.MarkFlagRequired("period")

	for _, c := range []*cobra.Command{retentionSetCmd, retentionOverviewCmd} {
		c.Flags().StringVarP(&retentionFlags.user, "user", "u", "", "acting user id")
		c.MarkFlagRequired("user")
	}

	retentionUpcomingCmd.Flags().IntVar(&retentionFlags.days, "days", 7, "days ahead to look")
	retentionCheckCmd.Flags().Int64Var(&retentionFlags.folder, "folder", 0, "group folder id the paths are relative to")
	retentionCheckCmd.MarkFlagRequired("folder")
}

// resolveItem turns a file id or absolute tree path into a file id.
func resolveItem(ctx context.Context, a *app, arg string) (int64, error) {
	if strings.HasPrefix(arg, "/") {
		n, err := a.tree.Stat(ctx, arg)
		if err != nil {
			return 0, retention.NewNotFoundError("file", arg, err.Error())
		}
		return n.ID, nil
	}
	if _, err := strconv.ParseInt(arg, 10, 64); err != nil {
		return 0, retention.NewValidationError("item", fmt.Sprintf("%q is neither a file id nor an absolute path", arg))
	}
	return parseID("item", arg)
}

func setRetention(cmd *cobra.Command, a *app, args []string) error {
	ctx := logging.WithUserID(cmd.Context(), retentionFlags.user)
	fileID, err := resolveItem(ctx, a, args[0])
	if err != nil {
		return err
	}
	r, err := a.files.SetFileRetention(ctx, fileID, files.Request{
		RetentionPeriod: retentionFlags.period,
		RetentionUnit:   retentionFlags.unit,
		TargetPath:      retentionFlags.target,
		Justification:   retentionFlags.justification,
		UserID:          retentionFlags.user,
	})
	if err != nil {
		return err
	}
	return printResult(cmd, retentionFlags.format, retentionTable{r})
}

func getRetention(cmd *cobra.Command, a *app, args []string) error {
	fileID, err := resolveItem(cmd.Context(), a, args[0])
	if err != nil {
		return err
	}
	r, err := a.files.GetFileRetention(cmd.Context(), fileID)
	if err != nil {
		return err
	}
	return printResult(cmd, retentionFlags.format, retentionTable{r})
}

func removeRetention(cmd *cobra.Command, a *app, args []string) error {
	fileID, err := resolveItem(cmd.Context(), a, args[0])
	if err != nil {
		return err
	}
	removed, err := a.files.RemoveFileRetention(cmd.Context(), fileID)
	if err != nil {
		return err
	}
	if !removed {
		fmt.Fprintf(cmd.OutOrStdout(), "file %d had no retention\n", fileID)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "retention of file %d removed\n", fileID)
	return nil
}

func retentionOverview(cmd *cobra.Command, a *app, args []string) error {
	list, err := a.files.UserRetentionOverview(cmd.Context(), retentionFlags.user)
	if err != nil {
		return err
	}
	return printResult(cmd, retentionFlags.format, overviewTable(list))
}

func upcomingRetentions(cmd *cobra.Command, a *app, args []string) error {
	list, err := a.files.UpcomingActions(cmd.Context(), retentionFlags.days)
	if err != nil {
		return err
	}
	return printResult(cmd, retentionFlags.format, retentionTable(list))
}

func checkRetentions(cmd *cobra.Command, a *app, args []string) error {
	result, err := a.resolver.CheckRetentionBatch(cmd.Context(), args, retentionFlags.folder)
	if err != nil {
		return err
	}
	if retentionFlags.format == "json" {
		return printResult(cmd, retentionFlags.format, result)
	}
	return printResult(cmd, retentionFlags.format, batchTable{result})
}
