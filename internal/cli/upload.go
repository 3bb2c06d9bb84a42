package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/coredeck/internal/controller"
	"github.com/shinji-kodama/coredeck/internal/model"
	"github.com/shinji-kodama/coredeck/internal/project"
)

// defaultSkipDirs are never uploaded.
var defaultSkipDirs = []string{".git", "node_modules"}

// uploadFlags holds the flag values for the upload command.
type uploadFlags struct {
	// gitURL clones a repository instead of reading a local folder.
	gitURL string

	// ref is the branch checked out from gitURL.
	ref string

	// skip lists extra directory names left out of the upload.
	skip []string
}

// NewUploadCommand creates the "upload" command.
func NewUploadCommand() *cobra.Command {
	flags := &uploadFlags{}

	cmd := &cobra.Command{
		Use:   "upload [dir]",
		Short: "Upload a project folder to the backend",
		Long: `Upload every file under a local folder, or of a shallow clone of a Git
repository, into the backend's project folder. The folder name becomes
the first path segment of every uploaded file.

.git and node_modules are never uploaded.

After the upload the status, the root listing, the node candidates and
the containers are refreshed.

Examples:
  coredeck upload ./shop
  coredeck upload --git https://github.com/acme/shop.git --ref main`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return runUpload(cmd.Context(), dir, flags)
		},
	}

	cmd.Flags().StringVar(&flags.gitURL, "git", "", "Clone this repository (depth 1) and upload it")
	cmd.Flags().StringVar(&flags.ref, "ref", "", "Branch to check out with --git")
	cmd.Flags().StringSliceVar(&flags.skip, "skip", nil, "Additional directory names to leave out")

	return cmd
}

func runUpload(ctx context.Context, dir string, flags *uploadFlags) error {
	if (dir == "") == (flags.gitURL == "") {
		return model.NewCLIError(model.ExitGeneralError, "give either a folder or --git <url>")
	}

	var opts []project.Option
	if flags.gitURL != "" {
		VerboseLog("Cloning %s...", flags.gitURL)
		var progress io.Writer
		if verbose {
			progress = os.Stderr
		}
		cloned, cleanup, err := project.CloneShallow(ctx, flags.gitURL, project.CloneOptions{
			Ref:      flags.ref,
			Progress: progress,
		})
		if err != nil {
			return err
		}
		defer cleanup()
		dir = cloned
		opts = append(opts, project.WithRootName(project.RepoName(flags.gitURL)))
	}

	opts = append(opts, project.WithSkipDirs(append(defaultSkipDirs, flags.skip...)...))
	files, err := project.Collect(dir, opts...)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return model.NewCLIError(model.ExitGeneralError, fmt.Sprintf("no files to upload under %s", dir))
	}
	total := project.TotalSize(files)
	VerboseLog("Collected %d files (%d bytes)", len(files), total)

	s, err := openSession()
	if err != nil {
		return err
	}
	ctl := s.controller(false)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		reportProgress(ctl, stop)
	}()
	err = ctl.UploadFolder(ctx, project.UploadFiles(files), total)
	close(stop)
	<-done
	if err != nil {
		return err
	}

	snap := ctl.Snapshot()
	if IsJSONOutput() {
		printJSON(map[string]interface{}{
			"action":     "uploaded",
			"files":      len(files),
			"bytes":      total,
			"root":       s.cfg.UploadRoot,
			"candidates": nonNil(snap.Candidates),
			"urls":       snap.URLs,
		})
		return nil
	}

	fmt.Printf("Uploaded %d files (%d bytes) to %s\n", len(files), total, s.cfg.UploadRoot)
	if len(snap.Candidates) > 0 {
		fmt.Printf("Node candidates: %v\n", snap.Candidates)
	}
	return nil
}

// reportProgress prints the upload progress to stderr until stop closes.
// Nothing is printed in JSON mode.
func reportProgress(ctl *controller.Controller, stop <-chan struct{}) {
	if IsJSONOutput() {
		<-stop
		return
	}
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	printed := false
	for {
		select {
		case <-stop:
			if printed {
				fmt.Fprintln(os.Stderr)
			}
			return
		case <-ticker.C:
			snap := ctl.Snapshot()
			if line := FormatProgress(snap.UploadSent, snap.UploadTotal); line != "" {
				fmt.Fprintf(os.Stderr, "\r%s", line)
				printed = true
			}
		}
	}
}

// FormatProgress renders "sent/total bytes (pct%)". An unknown total
// yields "".
func FormatProgress(sent, total int64) string {
	if total <= 0 {
		return ""
	}
	if sent > total {
		sent = total
	}
	return fmt.Sprintf("uploading %d/%d bytes (%d%%)", sent, total, sent*100/total)
}

// nonNil keeps JSON output as [] instead of null.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
