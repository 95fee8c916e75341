package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/custodian/pkg/retention"
)

var folderFlags struct {
	format string
}

var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Manage the group folder directory",
	Long: `Manage the directory that maps group folder ids to the mount point
names users see under /<user>/files/<mount point>/.`,
}

var folderAddCmd = &cobra.Command{
	Use:     "add ID MOUNT_POINT",
	Short:   "Register or rename a group folder",
	Example: `  custodian folder add 3 Contracts`,
	Args:    cobra.ExactArgs(2),
	RunE:    runAppCommand("folder add", addFolder),
}

var folderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List group folders",
	Args:  cobra.NoArgs,
	RunE:  runAppCommand("folder list", listFolders),
}

func init() {
	rootCmd.AddCommand(folderCmd)
	folderCmd.AddCommand(folderAddCmd, folderListCmd)
	folderListCmd.Flags().StringVarP(&folderFlags.format, "format", "f", "text", "output format (text, json, csv)")
}

func addFolder(cmd *cobra.Command, a *app, args []string) error {
	id, err := parseID("id", args[0])
	if err != nil {
		return err
	}
	mount := strings.TrimSpace(args[1])
	if mount == "" || strings.Contains(mount, "/") {
		return retention.NewValidationError("mount_point", "must be a single non-empty path segment")
	}
	if err := a.store.UpsertFolder(cmd.Context(), &retention.Folder{ID: id, MountPoint: mount}); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "folder %d registered as %q\n", id, mount)
	return nil
}

func listFolders(cmd *cobra.Command, a *app, args []string) error {
	list, err := a.store.ListFolders(cmd.Context())
	if err != nil {
		return err
	}
	return printResult(cmd, folderFlags.format, folderTable(list))
}
