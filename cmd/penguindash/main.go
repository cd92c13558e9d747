// Command penguindash serves and queries the Palmer penguins dashboard.
package main

import (
	"os"

	"penguindash/internal/cli"
)

func main() {
	os.Exit(cli.New().Execute())
}
