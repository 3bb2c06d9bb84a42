// Package cli implements the cobra-based CLI commands for coredeck.
//
// Related subcommands share a file within this package (files.go,
// upload.go, launch.go, containers.go, plugin.go, interactive.go). This
// file defines the root command, the global flags and the translation of
// errors into exit codes.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/coredeck/internal/api"
	"github.com/shinji-kodama/coredeck/internal/model"
)

// Global flag variables shared across all subcommands.
var (
	// jsonOutput switches command output to JSON for machine consumption.
	jsonOutput bool

	// verbose prints trace output to stderr.
	verbose bool

	// apiOrigin overrides the backend origin from the settings file and
	// the COREDECK_API environment variable.
	apiOrigin string

	// configPath points at an explicit settings file.
	configPath string
)

// Version, Commit and Date are set at build time via ldflags from the
// main package.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "coredeck",
		Short: "Control surface for a core project backend",
		Long: `coredeck drives a core project backend: upload a project folder,
browse and edit its files, start its frontend and backend as containers,
find the URLs they are published on and scaffold browser plugins.

Run "coredeck tui" for the interactive dashboard.`,

		// Errors are printed by Execute in text or JSON form.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	flags.StringVar(&apiOrigin, "api", "", "Backend origin (default from settings, $COREDECK_API or http://localhost:8000)")
	flags.StringVar(&configPath, "config", "", "Settings file (.jsonc, .json, .yaml or .yml)")

	rootCmd.AddCommand(NewStatusCommand())
	rootCmd.AddCommand(NewTreeCommand())
	rootCmd.AddCommand(NewCatCommand())
	rootCmd.AddCommand(NewSaveCommand())
	rootCmd.AddCommand(NewUploadCommand())
	rootCmd.AddCommand(NewCandidatesCommand())
	rootCmd.AddCommand(NewStartCommand())
	rootCmd.AddCommand(NewContainersCommand())
	rootCmd.AddCommand(NewURLsCommand())
	rootCmd.AddCommand(NewStopCommand())
	rootCmd.AddCommand(NewStopAllCommand())
	rootCmd.AddCommand(NewPluginCommand())
	rootCmd.AddCommand(NewTUICommand())
	rootCmd.AddCommand(NewPreviewCommand())

	return rootCmd
}

// Execute runs the root command and exits with the code matching the
// returned error.
func Execute(rootCmd *cobra.Command) {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	var cliErr *model.CLIError
	if errors.As(err, &cliErr) && cliErr == err {
		printError(cliErr.Message, cliErr.Err)
	} else {
		printError(err.Error(), nil)
	}
	os.Exit(int(ExitCodeFor(err)))
}

// ExitCodeFor maps an error onto a process exit code.
//
//	*model.CLIError anywhere in the chain → its Code
//	*api.APIError with status 404         → ExitNotFound
//	any other *api.APIError               → ExitBackendRejected
//	*url.Error (transport failure)        → ExitBackendUnreachable
//	anything else                         → ExitGeneralError
func ExitCodeFor(err error) model.ExitCode {
	if err == nil {
		return model.ExitSuccess
	}

	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}
	if api.IsNotFound(err) {
		return model.ExitNotFound
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return model.ExitBackendRejected
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return model.ExitBackendUnreachable
	}
	return model.ExitGeneralError
}

// printError outputs an error message in text or JSON form on stderr.
func printError(message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		// stdout is reserved for successful command output.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
		return
	}

	if underlying != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	}
}

// printJSON writes v to stdout as 2-space indented JSON.
func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

// VerboseLog prints a message to stderr only when verbose mode is enabled.
func VerboseLog(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}
