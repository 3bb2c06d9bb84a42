package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/coredeck/internal/docker"
	"github.com/shinji-kodama/coredeck/internal/model"
	"github.com/shinji-kodama/coredeck/internal/port"
)

const (
	sourceAPI    = "api"
	sourceDocker = "docker"
)

// containersFlags holds the flag values for the containers command.
type containersFlags struct {
	// source is "api" (ask the backend) or "docker" (ask the local daemon).
	source string
}

// NewContainersCommand creates the "containers" command.
func NewContainersCommand() *cobra.Command {
	flags := &containersFlags{}

	cmd := &cobra.Command{
		Use:   "containers",
		Short: "List the running project containers",
		Long: `List the running containers keyed by project subdir, with their
published ports.

By default the backend is asked. With --source docker the local Docker
daemon is read instead, selecting containers by the configured subdir
label.

Examples:
  coredeck containers
  coredeck containers --source docker --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContainers(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.source, "source", sourceAPI, `Where to read containers from: "api" or "docker"`)
	return cmd
}

func runContainers(ctx context.Context, flags *containersFlags) error {
	s, err := openSession()
	if err != nil {
		return err
	}

	var containers *model.ContainersMap
	switch flags.source {
	case sourceAPI:
		ctl := s.controller(false)
		if err := ctl.ListContainers(ctx); err != nil {
			return err
		}
		containers = ctl.Snapshot().Containers
	case sourceDocker:
		containers, err = dockerContainers(ctx, s.cfg.ProjectLabel)
		if err != nil {
			return err
		}
	default:
		return model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("invalid --source %q: must be %q or %q", flags.source, sourceAPI, sourceDocker))
	}

	if IsJSONOutput() {
		printJSON(model.ContainersResponse{Containers: *containers})
		return nil
	}
	fmt.Print(FormatContainers(containers))
	return nil
}

// dockerContainers reads the labelled containers from the local daemon.
func dockerContainers(ctx context.Context, label string) (*model.ContainersMap, error) {
	cli, err := docker.NewClient()
	if err != nil {
		return nil, err
	}
	defer func() { _ = cli.Close() }()

	if err := cli.Ping(ctx); err != nil {
		return nil, err
	}
	VerboseLog("Connected to Docker daemon at %s, filtering on label %q", cli.Host(), label)
	return docker.ListProjectContainers(ctx, cli, label)
}

// urlsFlags holds the flag values for the urls command.
type urlsFlags struct {
	front  string
	back   string
	source string
}

// NewURLsCommand creates the "urls" command.
func NewURLsCommand() *cobra.Command {
	flags := &urlsFlags{}

	cmd := &cobra.Command{
		Use:   "urls",
		Short: "Show the frontend and backend URLs",
		Long: `Derive the browsable frontend and backend URLs from the running
containers. The subdir guesses come from the node candidates unless given
with --front and --back.

Examples:
  coredeck urls
  coredeck urls --front web --back api`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runURLs(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.front, "front", "", "Frontend subdir (default: guessed)")
	cmd.Flags().StringVar(&flags.back, "back", "", "Backend subdir (default: guessed)")
	cmd.Flags().StringVar(&flags.source, "source", sourceAPI, `Where to read containers from: "api" or "docker"`)
	return cmd
}

func runURLs(ctx context.Context, flags *urlsFlags) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	ctl := s.controller(false)

	// Without candidates the resolver still scans every container.
	if err := ctl.LoadNodeCandidates(ctx); err != nil {
		VerboseLog("%v", err)
	}
	snap := ctl.Snapshot()
	front := pickSubdir(flags.front, snap.FrontSubdir)
	back := pickSubdir(flags.back, snap.BackSubdir)
	ctl.SetSubdirs(front, back)

	var urls model.ResolvedURLs
	switch flags.source {
	case sourceAPI:
		if err := ctl.ListContainers(ctx); err != nil {
			return err
		}
		urls = ctl.Snapshot().URLs
	case sourceDocker:
		containers, err := dockerContainers(ctx, s.cfg.ProjectLabel)
		if err != nil {
			return err
		}
		urls = port.ResolveURLs(containers, front, back)
	default:
		return model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("invalid --source %q: must be %q or %q", flags.source, sourceAPI, sourceDocker))
	}

	if IsJSONOutput() {
		printJSON(urls)
		return nil
	}
	fmt.Print(FormatURLs(urls))
	return nil
}

// NewStopCommand creates the "stop" command.
func NewStopCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <subdir>",
		Short: "Stop the container of one subdir",
		Long: `Stop the running container started for a project subdir.

Examples:
  coredeck stop frontend`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop(cmd.Context(), args[0])
		},
	}
}

func runStop(ctx context.Context, subdir string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	ctl := s.controller(false)
	if err := ctl.Stop(ctx, subdir); err != nil {
		return err
	}
	printStopResult([]string{subdir}, ctl.Snapshot().Containers)
	return nil
}

// stopAllFlags holds the flag values for the stop-all command.
type stopAllFlags struct {
	// yes skips the confirmation prompt.
	yes bool
}

// NewStopAllCommand creates the "stop-all" command.
func NewStopAllCommand() *cobra.Command {
	flags := &stopAllFlags{}

	cmd := &cobra.Command{
		Use:   "stop-all",
		Short: "Stop every project container",
		Long: `Stop every container the backend started for the project. Asks for
confirmation unless --yes is given.

Examples:
  coredeck stop-all
  coredeck stop-all --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStopAll(cmd.Context(), flags, cmd.InOrStdin())
		},
	}

	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func runStopAll(ctx context.Context, flags *stopAllFlags, stdin io.Reader) error {
	if !flags.yes {
		fmt.Print("Stop all project containers? [y/N] ")
		confirmed, err := promptConfirmation(stdin)
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	ctl := s.controller(false)

	// Capture what is running so the result can name it.
	var stopped []string
	if err := ctl.ListContainers(ctx); err == nil {
		stopped = ctl.Snapshot().Containers.Keys()
	}
	if err := ctl.StopAll(ctx); err != nil {
		return err
	}
	printStopResult(stopped, ctl.Snapshot().Containers)
	return nil
}

// promptConfirmation reads one line and reports whether it is "y" or
// "yes". A closed input counts as no.
func promptConfirmation(in io.Reader) (bool, error) {
	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		answer := strings.TrimSpace(strings.ToLower(scanner.Text()))
		return answer == "y" || answer == "yes", nil
	}
	if err := scanner.Err(); err != nil {
		return false, err
	}
	return false, nil
}

// printStopResult reports the stopped subdirs and what is still running.
func printStopResult(stopped []string, remaining *model.ContainersMap) {
	if IsJSONOutput() {
		printJSON(map[string]interface{}{
			"action":     "stopped",
			"subdirs":    nonNil(stopped),
			"containers": remaining,
		})
		return
	}
	if len(stopped) == 0 {
		fmt.Println("Stopped all containers.")
	} else {
		fmt.Printf("Stopped %s\n", strings.Join(stopped, ", "))
	}
	if remaining.Len() > 0 {
		fmt.Println()
		fmt.Print(FormatContainers(remaining))
	}
}

// FormatContainers renders containers as a fixed-width table:
//
//	SUBDIR         NAME                 PORTS
//	frontend       shop-web             5000:3000
//	backend        shop-api             -
func FormatContainers(containers *model.ContainersMap) string {
	if containers.Len() == 0 {
		return "No containers running.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %-24s %s\n", "SUBDIR", "NAME", "PORTS")
	for _, key := range containers.Keys() {
		rec, _ := containers.Get(key)
		fmt.Fprintf(&b, "%-20s %-24s %s\n", key, rec.DisplayName(), FormatPortsList(rec.Ports))
	}
	return b.String()
}

// FormatPortsList joins port mappings with commas, keeping their order.
// Returns "-" when there are none.
func FormatPortsList(ports []string) string {
	if len(ports) == 0 {
		return "-"
	}
	return strings.Join(ports, ",")
}

// FormatURLs renders the resolved URLs, or the no-ports notice when
// neither could be resolved.
func FormatURLs(urls model.ResolvedURLs) string {
	if urls.IsEmpty() {
		return "No published ports detected yet\n"
	}
	return fmt.Sprintf("frontend: %s\nbackend:  %s\n", orDash(urls.Frontend), orDash(urls.Backend))
}

// orDash returns "-" for an empty string.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
