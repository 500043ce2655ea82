package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/edgeopslabs/appkit/pkg/host"
)

func newToolsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools of every configured instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, _ := cmd.Flags().GetString("format")
			h, err := e.newHost()
			if err != nil {
				return err
			}
			tools, err := h.Tools(cmd.Context())
			if err != nil {
				slog.Warn("some instances failed to list tools", "error", err)
			}
			return printTools(cmd.OutOrStdout(), tools, format)
		},
	}
	cmd.Flags().String("format", "text", "Output format: text | json")
	return cmd
}

func (e *env) newHost(opts ...host.Option) (*host.Host, error) {
	opts = append([]host.Option{host.WithConfirmer(confirmTool)}, opts...)
	h, err := host.New(e.cfg, opts...)
	if err != nil {
		return nil, exitError(exitUsage, "%v", err)
	}
	return h, nil
}

func printTools(w io.Writer, tools []host.ToolInfo, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tools)
	case "text", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "INSTANCE\tTOOL\tSTATUS\tDESCRIPTION")
		for _, t := range tools {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Instance, t.Tool.Name, t.Status, t.Tool.Description)
		}
		return tw.Flush()
	default:
		return exitError(exitUsage, "unknown format %q", format)
	}
}

// confirmTool asks on the controlling terminal; without one the call is denied.
func confirmTool(_ context.Context, instance, tool string) bool {
	tty, err := os.OpenFile(filepath.Clean("/dev/tty"), os.O_RDWR, 0)
	if err != nil {
		slog.Warn("confirmation unavailable; denying tool", "instance", instance, "tool", tool, "error", err)
		return false
	}
	defer tty.Close()

	_, _ = fmt.Fprintf(tty, "Confirm execution of %s/%s [y/N]: ", instance, tool)
	reader := bufio.NewReader(tty)
	line, _ := reader.ReadString('\n')
	response := strings.TrimSpace(strings.ToLower(line))
	return response == "y" || response == "yes"
}
