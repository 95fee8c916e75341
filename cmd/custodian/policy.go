package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/custodian/pkg/cli"
	"mercator-hq/custodian/pkg/retention"
	"mercator-hq/custodian/pkg/retention/policies"
)

var policyFlags struct {
	format               string
	name                 string
	description          string
	action               string
	target               string
	notifyDays           int
	autoProcess          bool
	allowed              []string
	requireJustification bool
	inactive             bool
	folders              []int64
	active               bool
}

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Manage retention policies",
	Long: `Manage retention policies and their group folder assignments.

Subcommands:
  list    - List every policy with its folders
  get     - Show one policy
  create  - Create a policy
  update  - Overwrite a policy
  delete  - Delete a policy with its retentions and logs
  toggle  - Activate or deactivate a policy
  assign  - Replace the folders a policy applies to
  import  - Apply a YAML policy file

Examples:
  # Create a policy that archives after review
  custodian policy create --name "Contracts" --action archive --target /archive \
    --allowed "1 years" --allowed "5 years" --folders 3,4

  # Deactivate policy 2
  custodian policy toggle 2 --active=false`,
}

var policyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List policies",
	Args:  cobra.NoArgs,
	RunE:  runAppCommand("policy list", listPolicies),
}

var policyGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show a policy",
	Args:  cobra.ExactArgs(1),
	RunE:  runAppCommand("policy get", getPolicy),
}

var policyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a policy",
	Args:  cobra.NoArgs,
	RunE:  runAppCommand("policy create", createPolicy),
}

var policyUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Overwrite a policy",
	Long: `Overwrite a policy. Flags that are not given keep their current value.
Folder assignments are changed with "policy assign".`,
	Args: cobra.ExactArgs(1),
	RunE: runAppCommand("policy update", updatePolicy),
}

var policyDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a policy, its assignments, retentions and logs",
	Args:  cobra.ExactArgs(1),
	RunE:  runAppCommand("policy delete", deletePolicy),
}

var policyToggleCmd = &cobra.Command{
	Use:   "toggle ID",
	Short: "Activate or deactivate a policy",
	Args:  cobra.ExactArgs(1),
	RunE:  runAppCommand("policy toggle", togglePolicy),
}

var policyAssignCmd = &cobra.Command{
	Use:   "assign ID",
	Short: "Replace the group folders a policy applies to",
	Args:  cobra.ExactArgs(1),
	RunE:  runAppCommand("policy assign", assignPolicy),
}

var policyImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Apply a YAML policy file",
	Long: `Apply a YAML policy file. Policies are matched by name: an existing
policy is updated, otherwise one is created. Listed folders replace the
policy's assignments.`,
	Args: cobra.ExactArgs(1),
	RunE: runAppCommand("policy import", importPolicies),
}

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyListCmd, policyGetCmd, policyCreateCmd, policyUpdateCmd,
		policyDeleteCmd, policyToggleCmd, policyAssignCmd, policyImportCmd)

	for _, c := range []*cobra.Command{policyListCmd, policyGetCmd, policyCreateCmd, policyImportCmd} {
		c.Flags().StringVarP(&policyFlags.format, "format", "f", "text", "output format (text, json, csv)")
	}

	for _, c := range []*cobra.Command{policyCreateCmd, policyUpdateCmd} {
		c.Flags().StringVar(&policyFlags.name, "name", "", "policy name")
		c.Flags().StringVar(&policyFlags.description, "description", "", "policy description")
		c.Flags().StringVar(&policyFlags.action, "action", "", "default action (move, delete, archive)")
		c.Flags().StringVar(&policyFlags.target, "target", "", "default target path for move and archive")
		c.Flags().IntVar(&policyFlags.notifyDays, "notify-days", 0, "days before expiry to notify")
		c.Flags().BoolVar(&policyFlags.autoProcess, "auto-process", false, "process expired items automatically")
		c.Flags().StringArrayVar(&policyFlags.allowed, "allowed", nil, `allowed retention period, e.g. "30 days" (repeatable)`)
		c.Flags().BoolVar(&policyFlags.requireJustification, "require-justification", false, "require a justification when setting a retention")
	}
	policyCreateCmd.Flags().BoolVar(&policyFlags.inactive, "inactive", false, "create the policy deactivated")
	policyCreateCmd.Flags().Int64SliceVar(&policyFlags.folders, "folders", nil, "group folder ids to assign")
	policyCreateCmd.MarkFlagRequired("name")
	policyCreateCmd.MarkFlagRequired("action")

	policyAssignCmd.Flags().Int64SliceVar(&policyFlags.folders, "folders", nil, "group folder ids; empty clears the assignment")
	policyToggleCmd.Flags().BoolVar(&policyFlags.active, "active", true, "activate (true) or deactivate (false)")
}

// runAppCommand opens the app, runs fn and wraps its error.
func runAppCommand(name string, fn func(*cobra.Command, *app, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return cli.NewCommandError(name, err)
		}
		defer a.Close()
		return cli.NewCommandError(name, fn(cmd, a, args))
	}
}

func listPolicies(cmd *cobra.Command, a *app, args []string) error {
	list, err := a.policies.ListAll(cmd.Context())
	if err != nil {
		return err
	}
	return printResult(cmd, policyFlags.format, policyTable(list))
}

func getPolicy(cmd *cobra.Command, a *app, args []string) error {
	id, err := parseID("id", args[0])
	if err != nil {
		return err
	}
	p, err := a.policies.Get(cmd.Context(), id)
	if err != nil {
		return err
	}
	return printResult(cmd, policyFlags.format, policyTable{p})
}

func createPolicy(cmd *cobra.Command, a *app, args []string) error {
	ctx := cmd.Context()
	p := &retention.Policy{
		Name:                 policyFlags.name,
		Description:          policyFlags.description,
		IsActive:             !policyFlags.inactive,
		DefaultAction:        retention.Action(policyFlags.action),
		DefaultTargetPath:    policyFlags.target,
		NotifyBeforeDays:     policyFlags.notifyDays,
		AutoProcess:          policyFlags.autoProcess,
		AllowedPeriods:       policyFlags.allowed,
		RequireJustification: policyFlags.requireJustification,
	}
	id, err := a.policies.Create(ctx, p)
	if err != nil {
		return err
	}
	if len(policyFlags.folders) > 0 {
		if err := a.policies.AssignFolders(ctx, id, policyFlags.folders); err != nil {
			return err
		}
	}
	created, err := a.policies.Get(ctx, id)
	if err != nil {
		return err
	}
	return printResult(cmd, policyFlags.format, policyTable{created})
}

func updatePolicy(cmd *cobra.Command, a *app, args []string) error {
	ctx := cmd.Context()
	id, err := parseID("id", args[0])
	if err != nil {
		return err
	}
	p, err := a.policies.Get(ctx, id)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("name") {
		p.Name = policyFlags.name
	}
	if flags.Changed("description") {
		p.Description = policyFlags.description
	}
	if flags.Changed("action") {
		p.DefaultAction = retention.Action(policyFlags.action)
	}
	if flags.Changed("target") {
		p.DefaultTargetPath = policyFlags.target
	}
	if flags.Changed("notify-days") {
		p.NotifyBeforeDays = policyFlags.notifyDays
	}
	if flags.Changed("auto-process") {
		p.AutoProcess = policyFlags.autoProcess
	}
	if flags.Changed("allowed") {
		p.AllowedPeriods = policyFlags.allowed
	}
	if flags.Changed("require-justification") {
		p.RequireJustification = policyFlags.requireJustification
	}

	if err := a.policies.Update(ctx, id, p); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "policy %d updated\n", id)
	return nil
}

func deletePolicy(cmd *cobra.Command, a *app, args []string) error {
	id, err := parseID("id", args[0])
	if err != nil {
		return err
	}
	if err := a.policies.Delete(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "policy %d deleted\n", id)
	return nil
}

func togglePolicy(cmd *cobra.Command, a *app, args []string) error {
	id, err := parseID("id", args[0])
	if err != nil {
		return err
	}
	if err := a.policies.Toggle(cmd.Context(), id, policyFlags.active); err != nil {
		return err
	}
	state := "deactivated"
	if policyFlags.active {
		state = "activated"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "policy %d %s\n", id, state)
	return nil
}

func assignPolicy(cmd *cobra.Command, a *app, args []string) error {
	id, err := parseID("id", args[0])
	if err != nil {
		return err
	}
	if err := a.policies.AssignFolders(cmd.Context(), id, policyFlags.folders); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "policy %d assigned to folders [%s]\n", id, joinIDs(policyFlags.folders))
	return nil
}

func importPolicies(cmd *cobra.Command, a *app, args []string) error {
	file, err := policies.LoadFile(args[0])
	if err != nil {
		return err
	}
	result, err := a.policies.Import(cmd.Context(), file)
	if err != nil {
		return err
	}
	return printResult(cmd, policyFlags.format, importTable{result})
}
