package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edgeopslabs/appkit/pkg/bundle"
	"github.com/edgeopslabs/appkit/pkg/conformance"
)

func newInstallCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "install <path-or-url>",
		Short: "Install an app bundle into the apps directory",
		Long: `install copies an app bundle (a directory, .zip, .tar.gz or http(s) URL)
into the apps directory and reports its conformance.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			installed, err := bundle.Install(cmd.Context(), args[0], e.cfg.Apps.Dir)
			if err != nil {
				return exitError(exitFailure, "install failed: %v", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Installed app bundle at %s\n", installed)

			report, err := conformance.Run(installed)
			if err != nil {
				return exitError(exitFailure, "%v", err)
			}
			for _, v := range report.Violations {
				fmt.Fprintln(cmd.ErrOrStderr(), v.String())
			}
			return nil
		},
	}
}
