package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/edgeopslabs/appkit/pkg/conformance"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <dir>",
		Short: "Check an app bundle for conformance",
		Long: `check loads the app bundle in <dir> (app.yaml and metadata.json) and runs
every descriptor, behaviour and metadata check, reporting all violations.

Exit codes: 0 conformant, 2 bundle unreadable, 3 violations found.`,
		Args: cobra.ExactArgs(1),
		RunE: runCheck,
	}
	cmd.Flags().String("format", "text", "Output format: text | json")
	cmd.Flags().Bool("strict", false, "Treat warnings as errors")
	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	strict, _ := cmd.Flags().GetBool("strict")

	report, err := conformance.Run(args[0])
	if err != nil {
		return exitError(exitUsage, "%v", err)
	}

	if err := printReport(cmd.OutOrStdout(), report, format); err != nil {
		return err
	}
	if report.HasErrors() || (strict && len(report.Warnings()) > 0) {
		return exitError(exitConformance, "%s: %d error(s), %d warning(s)", report.AppID, len(report.Errors()), len(report.Warnings()))
	}
	return nil
}

func printReport(w io.Writer, report *conformance.Report, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "text", "":
		if len(report.Violations) == 0 {
			fmt.Fprintf(w, "%s: OK (%s runtime)\n", report.AppID, report.Runtime)
			return nil
		}
		for _, v := range report.Violations {
			fmt.Fprintln(w, v.String())
		}
		fmt.Fprintf(w, "\n%s: %d error(s), %d warning(s)\n", report.AppID, len(report.Errors()), len(report.Warnings()))
		return nil
	default:
		return exitError(exitUsage, "unknown format %q", format)
	}
}
