package registrycmder

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/ai-asa/chat-websearch/pkg/registry"
)

const registryLongDesc string = `Inspect and edit the activity registry.

The registry lists every Zeebe task type with its input and output JSON
schemas. Workers and the HTTP API validate variables against it. Without
--path the registry embedded in the binary is used; add and update need a file.

Examples:
  research-chat registry list
  research-chat registry validate --path configs/activity-registry.json
  research-chat registry update --path configs/activity-registry.json --id research-turn --field status --value verified`

const registryShortDesc string = "Manage the activity registry"

type registryCommander struct {
	path string
}

func NewRegistryCmd() *cobra.Command {
	cmder := &registryCommander{}

	cmd := &cobra.Command{
		Use:   "registry",
		Short: registryShortDesc,
		Long:  registryLongDesc,
	}
	cmd.PersistentFlags().StringVarP(&cmder.path, "path", "p", "", "Path to the registry JSON file")

	cmd.AddCommand(
		cmder.newListCmd(),
		cmder.newValidateCmd(),
		cmder.newAddCmd(),
		cmder.newUpdateCmd(),
	)
	return cmd
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func (c *registryCommander) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered activities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.Load(c.path)
			if err != nil {
				return fmt.Errorf("could not load registry: %w", err)
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("TASK TYPE", "STATUS", "VERSION", "TIMEOUT", "RETRIES", "WORKFLOWS").
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == table.HeaderRow {
						return headerStyle
					}
					return cellStyle
				})
			for _, a := range reg.Activities {
				t.Row(a.TaskType, string(a.ImplementationStatus), a.Version, a.Timeout, fmt.Sprint(a.Retries), strings.Join(a.Workflows, ","))
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
}

func (c *registryCommander) newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check required fields, naming and schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.Load(c.path)
			if err != nil {
				return fmt.Errorf("could not load registry: %w", err)
			}
			if err := reg.Validate(); err != nil {
				return fmt.Errorf("registry validation failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registry validation passed (%d activities).\n", len(reg.Activities))
			return nil
		},
	}
}

func (c *registryCommander) newAddCmd() *cobra.Command {
	var (
		a      registry.Activity
		status string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an activity to a registry file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.path == "" {
				return errors.New("--path is required for add")
			}
			if a.TaskType == "" {
				a.TaskType = a.ID
			}

			reg, err := registry.LoadRegistry(c.path)
			if errors.Is(err, os.ErrNotExist) {
				reg = &registry.ActivityRegistry{Version: "1.0.0"}
			} else if err != nil {
				return fmt.Errorf("could not load registry: %w", err)
			}

			activity := a
			activity.ImplementationStatus = registry.Status(status)
			activity.InputSchema = map[string]interface{}{}
			activity.OutputSchema = map[string]interface{}{}
			activity.ErrorCodes = []string{}
			activity.Workflows = []string{}
			activity.Tags = []string{}
			if err := reg.Add(activity); err != nil {
				return err
			}
			if err := reg.Validate(); err != nil {
				return err
			}
			if err := reg.Save(c.path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added activity: %s\n", activity.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&a.ID, "id", "", "Activity ID (kebab-case, e.g. research-turn)")
	cmd.Flags().StringVar(&a.DisplayName, "display-name", "", "Display name")
	cmd.Flags().StringVar(&a.Description, "description", "", "Description")
	cmd.Flags().StringVar(&a.Category, "category", "research", "Category")
	cmd.Flags().StringVar(&a.TaskType, "task-type", "", "Zeebe task type (default: the id)")
	cmd.Flags().StringVar(&a.Version, "version", "1.0.0", "Version")
	cmd.Flags().StringVar(&status, "status", "planned", "Implementation status (planned, in-progress, completed, verified)")
	cmd.Flags().StringVar(&a.Timeout, "timeout", "30s", "Job timeout")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("display-name")

	return cmd
}

func (c *registryCommander) newUpdateCmd() *cobra.Command {
	var id, field, value string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Set one field of an activity in a registry file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.path == "" {
				return errors.New("--path is required for update")
			}
			reg, err := registry.LoadRegistry(c.path)
			if err != nil {
				return fmt.Errorf("could not load registry: %w", err)
			}
			if err := reg.Update(id, field, value); err != nil {
				return err
			}
			if err := reg.Save(c.path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated activity %s, field %s to %s\n", id, field, value)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Activity ID to update")
	cmd.Flags().StringVar(&field, "field", "", "Field to update (status, version, displayName, description, category, taskType, timeout, retries)")
	cmd.Flags().StringVar(&value, "value", "", "New value")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("field")
	_ = cmd.MarkFlagRequired("value")

	return cmd
}
