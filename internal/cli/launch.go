package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewCandidatesCommand creates the "candidates" command.
func NewCandidatesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "candidates",
		Short: "List node app roots and the frontend/backend guesses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCandidates(cmd.Context())
		},
	}
}

func runCandidates(ctx context.Context) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	ctl := s.controller(false)
	if err := ctl.LoadNodeCandidates(ctx); err != nil {
		return err
	}

	snap := ctl.Snapshot()
	if IsJSONOutput() {
		printJSON(map[string]interface{}{
			"candidates": nonNil(snap.Candidates),
			"frontend":   snap.FrontSubdir,
			"backend":    snap.BackSubdir,
		})
		return nil
	}

	if len(snap.Candidates) == 0 {
		fmt.Println("No node app roots found.")
		return nil
	}
	for _, c := range snap.Candidates {
		fmt.Println(c)
	}
	fmt.Printf("\nfrontend: %s\nbackend:  %s\n", orDash(snap.FrontSubdir), orDash(snap.BackSubdir))
	return nil
}

// startFlags holds the flag values for the start command.
type startFlags struct {
	// front and back override the guessed subdirs; "-" disables a role.
	front string
	back  string

	// frontPort and backPort override the configured host ports.
	frontPort string
	backPort  string

	// image overrides the configured container image.
	image string

	// checkPorts refuses host ports already bound on this machine.
	checkPorts bool
}

// NewStartCommand creates the "start" command.
func NewStartCommand() *cobra.Command {
	flags := &startFlags{}

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the frontend and backend containers",
		Long: `Ask the backend to start one container per selected subdir. The
frontend and backend subdirs are guessed from the node candidates unless
given with --front and --back; pass "-" to leave a role out.

Host ports may be empty, in which case only the container port is
declared and the runtime picks a host port.

With --check-ports the host ports are probed on this machine first and
the command fails with exit code 4 when one is already bound.

Examples:
  coredeck start
  coredeck start --front web --back api --front-port 5000 --back-port 9090
  coredeck start --front web --back - --check-ports`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.front, "front", "", "Frontend subdir (default: guessed)")
	cmd.Flags().StringVar(&flags.back, "back", "", "Backend subdir (default: guessed)")
	cmd.Flags().StringVar(&flags.frontPort, "front-port", "", "Frontend host port (default from settings)")
	cmd.Flags().StringVar(&flags.backPort, "back-port", "", "Backend host port (default from settings)")
	cmd.Flags().StringVar(&flags.image, "image", "", "Container image (default from settings)")
	cmd.Flags().BoolVar(&flags.checkPorts, "check-ports", false, "Fail when a host port is already bound locally")

	return cmd
}

func runStart(cmd *cobra.Command, flags *startFlags) error {
	ctx := cmd.Context()

	s, err := openSession()
	if err != nil {
		return err
	}
	if flags.image != "" {
		s.cfg.Image = flags.image
	}
	ctl := s.controller(flags.checkPorts)

	// Candidates only feed the guesses. Without them a role given by flag
	// still starts, and an unguessed one is left out.
	if flags.front == "" || flags.back == "" {
		if err := ctl.LoadNodeCandidates(ctx); err != nil {
			VerboseLog("%v", err)
		}
	}
	snap := ctl.Snapshot()
	front := pickSubdir(flags.front, snap.FrontSubdir)
	back := pickSubdir(flags.back, snap.BackSubdir)
	ctl.SetSubdirs(front, back)

	frontPort, backPort := snap.FrontHostPort, snap.BackHostPort
	if cmd.Flags().Changed("front-port") {
		frontPort = flags.frontPort
	}
	if cmd.Flags().Changed("back-port") {
		backPort = flags.backPort
	}
	ctl.SetHostPorts(frontPort, backPort)

	VerboseLog("Starting frontend=%q (host %q) backend=%q (host %q) with %s",
		front, frontPort, back, backPort, s.cfg.Image)
	if err := ctl.Start(ctx); err != nil {
		return err
	}

	snap = ctl.Snapshot()
	if IsJSONOutput() {
		printJSON(map[string]interface{}{
			"action":     "started",
			"containers": snap.Containers,
			"urls":       snap.URLs,
		})
		return nil
	}
	fmt.Println(snap.Notice)
	fmt.Print(FormatContainers(snap.Containers))
	fmt.Print(FormatURLs(snap.URLs))
	return nil
}

// pickSubdir returns the flag value when given, the guess otherwise.
// "-" selects nothing.
func pickSubdir(flag, guess string) string {
	switch flag {
	case "":
		return guess
	case "-":
		return ""
	default:
		return flag
	}
}
