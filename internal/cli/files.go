package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/coredeck/internal/model"
)

// NewStatusCommand creates the "status" command.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the backend project status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context())
		},
	}
}

func runStatus(ctx context.Context) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	ctl := s.controller(false)
	if err := ctl.Refresh(ctx); err != nil {
		return err
	}

	st := ctl.Snapshot().Status
	if IsJSONOutput() {
		printJSON(st)
		return nil
	}
	fmt.Print(FormatStatus(st))
	return nil
}

// FormatStatus renders a status as aligned "key: value" lines.
func FormatStatus(st *model.Status) string {
	if st == nil {
		return "status: unknown\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %s\n", "project:", yesNo(st.ProjectPresent))
	fmt.Fprintf(&b, "%-10s %s\n", "jar:", yesNo(st.JarPresent))
	fmt.Fprintf(&b, "%-10s %s\n", "running:", yesNo(st.Running))
	if st.PID != nil {
		fmt.Fprintf(&b, "%-10s %d\n", "pid:", *st.PID)
	}
	if st.JarPath != nil {
		fmt.Fprintf(&b, "%-10s %s\n", "jar path:", *st.JarPath)
	}
	if st.AppURL != nil {
		fmt.Fprintf(&b, "%-10s %s\n", "app url:", *st.AppURL)
	}
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// NewTreeCommand creates the "tree" command.
func NewTreeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tree [dir]",
		Short: "List a project directory",
		Long: `List one directory of the uploaded project. Without an argument the
project root is listed.

Examples:
  coredeck tree
  coredeck tree src/components`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return runTree(cmd.Context(), dir)
		},
	}
}

func runTree(ctx context.Context, dir string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	ctl := s.controller(false)
	if err := ctl.LoadTree(ctx, dir); err != nil {
		return err
	}

	snap := ctl.Snapshot()
	if IsJSONOutput() {
		items := snap.Items
		if items == nil {
			items = []model.TreeItem{}
		}
		printJSON(model.TreeListing{Cwd: snap.Cwd, Items: items})
		return nil
	}
	fmt.Print(FormatTree(snap.Cwd, snap.Items))
	return nil
}

// FormatTree renders a listing with directories suffixed by "/".
func FormatTree(cwd string, items []model.TreeItem) string {
	var b strings.Builder
	if cwd == "" {
		cwd = "."
	}
	fmt.Fprintf(&b, "%s\n", cwd)
	if len(items) == 0 {
		b.WriteString("  (empty)\n")
		return b.String()
	}
	for _, it := range items {
		name := it.Name
		if it.Type == model.ItemDir {
			name += "/"
		}
		fmt.Fprintf(&b, "  %s\n", name)
	}
	return b.String()
}

// NewCatCommand creates the "cat" command.
func NewCatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <path>",
		Short: "Print a project file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCat(cmd.Context(), args[0])
		},
	}
}

func runCat(ctx context.Context, path string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	ctl := s.controller(false)
	if err := ctl.OpenFile(ctx, path); err != nil {
		return err
	}

	snap := ctl.Snapshot()
	if IsJSONOutput() {
		printJSON(map[string]interface{}{"path": snap.OpenPath, "content": snap.Buffer})
		return nil
	}
	fmt.Print(snap.Buffer)
	return nil
}

// saveFlags holds the flag values for the save command.
type saveFlags struct {
	// file is a local file whose content is saved; "" or "-" reads stdin.
	file string
}

// NewSaveCommand creates the "save" command.
func NewSaveCommand() *cobra.Command {
	flags := &saveFlags{}

	cmd := &cobra.Command{
		Use:   "save <path>",
		Short: "Write a project file",
		Long: `Write text to a file of the uploaded project, replacing its content.
The text is read from --file or, without it, from stdin.

Examples:
  coredeck save src/App.jsx --file ./App.jsx
  echo "hello" | coredeck save notes.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(cmd.Context(), args[0], flags, cmd.InOrStdin())
		},
	}

	cmd.Flags().StringVarP(&flags.file, "file", "f", "", "Local file to read the text from (default stdin)")
	return cmd
}

func runSave(ctx context.Context, path string, flags *saveFlags, stdin io.Reader) error {
	text, err := readInput(flags.file, stdin)
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	VerboseLog("Saving %d bytes to %s", len(text), path)
	if err := s.client.SaveFile(ctx, path, text); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}

	if IsJSONOutput() {
		printJSON(map[string]interface{}{"path": path, "action": "saved", "bytes": len(text)})
		return nil
	}
	fmt.Printf("Saved %s (%d bytes)\n", path, len(text))
	return nil
}

// readInput returns the content of file, or of stdin when file is "" or "-".
func readInput(file string, stdin io.Reader) (string, error) {
	if file == "" || file == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", file, err)
	}
	return string(data), nil
}
