package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/custodian/pkg/cli"
	"mercator-hq/custodian/pkg/retention"
	"mercator-hq/custodian/pkg/retention/hierarchy"
	"mercator-hq/custodian/pkg/retention/policies"
	"mercator-hq/custodian/pkg/retention/scanner"
)

// printResult writes data to the command's stdout in the requested format.
func printResult(cmd *cobra.Command, format string, data interface{}) error {
	f, err := cli.ParseFormat(format)
	if err != nil {
		return err
	}
	return cli.NewFormatter(f).FormatTo(cmd.OutOrStdout(), data)
}

// parseID parses a positional id argument.
func parseID(field, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, retention.NewValidationError(field, fmt.Sprintf("%q is not a valid id", arg))
	}
	return id, nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

type policyTable []*retention.Policy

func (t policyTable) Header() []string {
	return []string{"ID", "NAME", "ACTIVE", "ACTION", "TARGET", "NOTIFY_DAYS", "AUTO", "PERIODS", "FOLDERS"}
}

func (t policyTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, p := range t {
		rows = append(rows, []string{
			itoa(p.ID),
			p.Name,
			strconv.FormatBool(p.IsActive),
			string(p.DefaultAction),
			p.DefaultTargetPath,
			strconv.Itoa(p.NotifyBeforeDays),
			strconv.FormatBool(p.AutoProcess),
			strings.Join(p.AllowedPeriods, ";"),
			joinIDs(p.FolderIDs),
		})
	}
	return rows
}

type retentionTable []*retention.FileRetention

func (t retentionTable) Header() []string {
	return []string{"FILE_ID", "POLICY_ID", "PERIOD", "EXPIRES", "ACTION", "TARGET", "STATUS", "CREATED_BY"}
}

func (t retentionTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, r := range t {
		rows = append(rows, []string{
			itoa(r.FileID),
			itoa(r.PolicyID),
			retention.FormatPeriod(r.RetentionPeriod, r.RetentionUnit),
			retention.FormatDate(r.ExpireDate),
			string(r.Action),
			r.TargetPath,
			string(r.Status),
			r.CreatedBy,
		})
	}
	return rows
}

type overviewTable []*retention.RetentionOverview

func (t overviewTable) Header() []string {
	return []string{"FILE_ID", "POLICY", "PERIOD", "EXPIRES", "ACTION", "STATUS"}
}

func (t overviewTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, r := range t {
		rows = append(rows, []string{
			itoa(r.FileID),
			r.PolicyName,
			retention.FormatPeriod(r.RetentionPeriod, r.RetentionUnit),
			retention.FormatDate(r.ExpireDate),
			string(r.Action),
			string(r.Status),
		})
	}
	return rows
}

type folderTable []*retention.Folder

func (t folderTable) Header() []string { return []string{"ID", "MOUNT_POINT"} }

func (t folderTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, f := range t {
		rows = append(rows, []string{itoa(f.ID), f.MountPoint})
	}
	return rows
}

type batchTable struct{ *hierarchy.BatchResult }

func (t batchTable) Header() []string {
	return []string{"PATH", "FILE_ID", "BLOCKED", "BLOCKING_PATH", "OWN_RETENTION"}
}

func (t batchTable) Rows() [][]string {
	rows := make([][]string, 0, len(t.Items))
	for _, s := range t.Items {
		rows = append(rows, []string{
			s.Path,
			itoa(s.FileID),
			strconv.FormatBool(s.Blocked),
			s.BlockingPath,
			strconv.FormatBool(s.HasOwnRetention),
		})
	}
	return rows
}

type summaryTable struct{ *scanner.Summary }

func (t summaryTable) Header() []string {
	return []string{"FILE_ID", "POLICY_ID", "ACTION", "RESULT", "DETAIL"}
}

func (t summaryTable) Rows() [][]string {
	rows := make([][]string, 0, len(t.Processed)+len(t.Errors))
	for _, item := range t.Processed {
		detail := item.FinalPath
		if t.DryRun {
			detail = item.Description
		} else if detail == "" {
			detail = item.OriginalPath
		}
		result := "done"
		if t.DryRun {
			result = "planned"
		}
		rows = append(rows, []string{itoa(item.FileID), itoa(item.PolicyID), string(item.Action), result, detail})
	}
	for _, e := range t.Errors {
		rows = append(rows, []string{itoa(e.FileID), itoa(e.PolicyID), string(e.Action), "failed", e.Error})
	}
	return rows
}

type importTable struct{ *policies.ImportResult }

func (t importTable) Header() []string { return []string{"CREATED", "UPDATED", "UNCHANGED"} }

func (t importTable) Rows() [][]string {
	return [][]string{{strconv.Itoa(t.Created), strconv.Itoa(t.Updated), strconv.Itoa(t.Unchanged)}}
}
