// Package display decides how commands present results and writes the
// machine-readable forms.
package display

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// JSONEnv forces JSON output for every command that supports it, for
// scripts that wrap bztriage
const JSONEnv = "BZTRIAGE_JSON"

// ShouldOutputJSON reports whether cmd should print JSON: an explicit --json
// flag wins, otherwise BZTRIAGE_JSON decides.
func ShouldOutputJSON(cmd *cobra.Command) bool {
	if cmd != nil && cmd.Flags().Lookup("json") != nil && cmd.Flags().Changed("json") {
		jsonFlag, _ := cmd.Flags().GetBool("json")
		return jsonFlag
	}

	forced, _ := strconv.ParseBool(os.Getenv(JSONEnv))
	return forced
}
