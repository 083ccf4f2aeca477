package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	deskmirror "github.com/ln64-git/deskmirror/internal"
	"github.com/ln64-git/deskmirror/src/config"
	mirrorsession "github.com/ln64-git/deskmirror/src/features/mirror-session"
	"github.com/ln64-git/deskmirror/src/utility"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// CLI holds references to the orchestrator and logger for command handlers
type CLI struct {
	mirror  *deskmirror.Deskmirror
	logger  *utility.Logger
	config  *config.Config
	version string
}

// NewCLI creates a new CLI instance
func NewCLI(mirror *deskmirror.Deskmirror, logger *utility.Logger, cfg *config.Config, version string) *CLI {
	return &CLI{
		mirror:  mirror,
		logger:  logger,
		config:  cfg,
		version: version,
	}
}

// CreateCommands creates all CLI commands
func (c *CLI) CreateCommands() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:     "deskmirror",
		Short:   "Deskmirror - display mirroring for Linux desktops",
		Long:    `Deskmirror detects the outputs of the running compositor and mirrors a selected display through a capture command.`,
		Version: c.version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				c.logger.SetLevel(utility.DEBUG)
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output")

	rootCmd.AddCommand(c.createDisplaysCmd())
	rootCmd.AddCommand(c.createMirrorCmd())
	rootCmd.AddCommand(c.createStatusCmd())
	rootCmd.AddCommand(c.createConfigCmd())
	rootCmd.AddCommand(c.createLogsCmd())

	return rootCmd
}

func (c *CLI) createDisplaysCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "displays",
		Short: "Detect and list displays",
		RunE: func(cmd *cobra.Command, args []string) error {
			st := c.mirror.GetDisplays(cmd.Context())
			return writeState(cmd.OutOrStdout(), st, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text, json, or yaml")
	return cmd
}

func (c *CLI) createMirrorCmd() *cobra.Command {
	var displayID string

	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Mirror a display until interrupted",
		Long: `Mirror a display until interrupted.

Without --display the first non-primary display is mirrored, or the primary
display when it is the only one. The session stops when the capture ends,
fails, or Ctrl+C is pressed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			unsubscribe := c.mirror.Session().Subscribe(func(st mirrorsession.State) {
				c.logger.Debug("Session: mirroring=%t stream=%s error=%q", st.Mirroring, st.StreamID, st.Error)
			})
			defer unsubscribe()

			return c.mirror.Run(ctx, displayID)
		},
	}

	cmd.Flags().StringVarP(&displayID, "display", "d", "", "Display id to mirror (see `deskmirror displays`)")
	return cmd
}

func (c *CLI) createStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show compositor, displays and session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), c.mirror.GetStatus(cmd.Context()))
			return nil
		},
	}
}

func (c *CLI) createConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), c.config.String())
		},
	}
}

func (c *CLI) createLogsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logs",
		Short: "List log files",
		Run: func(cmd *cobra.Command, args []string) {
			files := c.logger.ListLogFiles()
			if len(files) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No log files (logging to console)")
				return
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
		},
	}
}

// Execute runs the root command with ctx
func (c *CLI) Execute(ctx context.Context) error {
	return c.CreateCommands().ExecuteContext(ctx)
}

func writeState(w io.Writer, st mirrorsession.State, format string) error {
	switch format {
	case "", "text":
		_, err := fmt.Fprintln(w, mirrorsession.FormatState(st))
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(st); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format: %s (must be text, json, or yaml)", format)
	}
}
