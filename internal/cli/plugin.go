package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/coredeck/internal/plugin"
)

// defaultEntryCode is written when no entry script is given.
const defaultEntryCode = `export default function mount(root) {
  root.textContent = "Hello from a coredeck plugin";
}
`

// NewPluginCommand creates the "plugin" command group.
func NewPluginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugin",
		Short: "Create and list browser plugins",
	}
	cmd.AddCommand(newPluginNewCommand())
	cmd.AddCommand(newPluginListCommand())
	return cmd
}

// pluginNewFlags holds the flag values for the plugin new command.
type pluginNewFlags struct {
	title string

	// entry is a local script file; "-" reads stdin, "" writes a stub.
	entry string
}

func newPluginNewCommand() *cobra.Command {
	flags := &pluginNewFlags{}

	cmd := &cobra.Command{
		Use:   "new <slug>",
		Short: "Write a plugin manifest and entry script",
		Long: `Write <slug>/manifest.json and <slug>/entry.js into the plugin
directory. The manifest is written first; the entry script only after it
succeeded.

Examples:
  coredeck plugin new about-us --title "About Us" --entry ./about.js
  cat chart.js | coredeck plugin new chart --entry -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPluginNew(cmd.Context(), args[0], flags, cmd.InOrStdin())
		},
	}

	cmd.Flags().StringVar(&flags.title, "title", "", "Display title (default: the slug)")
	cmd.Flags().StringVar(&flags.entry, "entry", "", `Entry script file, "-" for stdin (default: a stub)`)
	return cmd
}

func runPluginNew(ctx context.Context, slug string, flags *pluginNewFlags, stdin io.Reader) error {
	code := defaultEntryCode
	if flags.entry != "" {
		text, err := readInput(flags.entry, stdin)
		if err != nil {
			return err
		}
		code = text
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	ctl := s.controller(false)
	manifest, err := ctl.SavePlugin(ctx, slug, flags.title, code)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		printJSON(map[string]interface{}{
			"action":   "created",
			"dir":      s.cfg.PluginDir,
			"manifest": manifest,
			"plugins":  nonNil(ctl.Snapshot().Plugins),
		})
		return nil
	}
	fmt.Printf("Created plugin %q (%s/%s)\n", manifest.Title, s.cfg.PluginDir, manifest.Name)
	return nil
}

func newPluginListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the plugins in the plugin directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPluginList(cmd.Context())
		},
	}
}

func runPluginList(ctx context.Context) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	ctl := s.controller(false)
	if err := ctl.RefreshPlugins(ctx); err != nil {
		return err
	}

	slugs := ctl.Snapshot().Plugins
	if IsJSONOutput() {
		printJSON(map[string]interface{}{"dir": s.cfg.PluginDir, "plugins": nonNil(slugs)})
		return nil
	}
	if len(slugs) == 0 {
		fmt.Printf("No plugins in %s.\n", s.cfg.PluginDir)
		return nil
	}
	fmt.Printf("%-24s %s\n", "SLUG", "TITLE")
	for _, slug := range slugs {
		fmt.Printf("%-24s %s\n", slug, plugin.TitleFromSlug(slug))
	}
	return nil
}
