package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edgeopslabs/appkit/pkg/app"
)

func newCallCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <instance> <tool>",
		Short: "Invoke one tool of a configured instance",
		Long: `call dispatches a single tool call and prints the JSON result.

Arguments come from --args (a JSON object) and repeated --arg key=value pairs;
--arg values override --args.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetString("args")
			pairs, _ := cmd.Flags().GetStringArray("arg")
			toolArgs, err := parseToolArgs(raw, pairs)
			if err != nil {
				return exitError(exitUsage, "%v", err)
			}

			h, err := e.newHost()
			if err != nil {
				return err
			}
			result, err := h.Call(cmd.Context(), args[0], args[1], toolArgs)
			if err != nil {
				if code := app.StatusCodeOf(err); code != 0 {
					return exitError(exitFailure, "%v (status %d)", err, code)
				}
				return exitError(exitFailure, "%v", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().String("args", "", "tool arguments as a JSON object")
	cmd.Flags().StringArray("arg", nil, "tool argument as key=value (repeatable)")
	return cmd
}

func parseToolArgs(raw string, pairs []string) (map[string]any, error) {
	out := make(map[string]any)
	if strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, fmt.Errorf("--args must be a JSON object: %w", err)
		}
	}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("--arg %q: expected key=value", pair)
		}
		out[key] = coerce(value)
	}
	return out, nil
}

// coerce turns flag text into the JSON scalar it spells, falling back to the
// string itself.
func coerce(value string) any {
	switch value {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}
