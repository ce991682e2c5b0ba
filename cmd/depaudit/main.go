// depaudit audits a research codebase's data flow: which scripts read and
// write which files, what is stale, what is missing, and what is orphaned.
package main

import (
	"os"

	"depaudit/cmd/depaudit/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
