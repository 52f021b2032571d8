// Command islproof verifies behavioral contracts against recorded
// executions.
package main

import (
	"os"

	"github.com/roach88/islproof/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
