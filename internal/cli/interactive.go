package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/coredeck/internal/api"
	"github.com/shinji-kodama/coredeck/internal/model"
	"github.com/shinji-kodama/coredeck/internal/port"
	"github.com/shinji-kodama/coredeck/internal/preview"
	"github.com/shinji-kodama/coredeck/internal/tui"
)

// tuiFlags holds the flag values for the tui command.
type tuiFlags struct {
	checkPorts bool
}

// NewTUICommand creates the "tui" command.
func NewTUICommand() *cobra.Command {
	flags := &tuiFlags{}

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive dashboard",
		Long: `Open a full-screen dashboard with the project explorer, the running
containers, the resolved URLs and the launch settings. The key bindings
are listed on the bottom line.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			return tui.Run(cmd.Context(), s.controller(flags.checkPorts), s.client.Origin())
		},
	}

	cmd.Flags().BoolVar(&flags.checkPorts, "check-ports", false, "Refuse to start on host ports already bound locally")
	return cmd
}

// previewFlags holds the flag values for the preview command.
type previewFlags struct {
	listen string
	front  string
}

// NewPreviewCommand creates the "preview" command.
func NewPreviewCommand() *cobra.Command {
	flags := &previewFlags{}

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Serve the running frontend on a fixed local address",
		Long: `Start a reverse proxy that forwards every request to the frontend
URL resolved from the running containers. The URL is resolved again for
each request, so the proxy follows restarts onto new host ports.

GET ` + preview.TargetPath + ` reports the current upstream.

Examples:
  coredeck preview
  coredeck preview --listen 127.0.0.1:9000 --front web`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.listen, "listen", preview.DefaultListen, "Address to listen on")
	cmd.Flags().StringVar(&flags.front, "front", "", "Frontend subdir (default: guessed)")
	return cmd
}

func runPreview(ctx context.Context, flags *previewFlags) error {
	s, err := openSession()
	if err != nil {
		return err
	}

	front := flags.front
	if front == "" {
		ctl := s.controller(false)
		if err := ctl.LoadNodeCandidates(ctx); err != nil {
			VerboseLog("%v", err)
		}
		front = ctl.Snapshot().FrontSubdir
	}
	VerboseLog("Frontend subdir guess: %q", front)

	srv := preview.New(frontendTarget(s.client, front))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Listen(flags.listen) }()
	fmt.Printf("Preview on http://%s (Ctrl+C to stop)\n", flags.listen)

	select {
	case err := <-errCh:
		return model.WrapCLIError(model.ExitGeneralError, "preview server failed", err)
	case <-ctx.Done():
	}

	if err := srv.Shutdown(); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		VerboseLog("preview server stopped: %v", err)
	}
	return nil
}

// frontendTarget resolves the frontend URL straight from the backend on
// every call. It bypasses the controller so concurrent asset requests
// are never refused as busy.
func frontendTarget(client *api.Client, front string) preview.TargetFunc {
	return func(ctx context.Context) (string, error) {
		containers, err := client.Containers(ctx)
		if err != nil {
			return "", err
		}
		return port.ResolveURLs(containers, front, "").Frontend, nil
	}
}
