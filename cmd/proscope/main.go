// # cmd/proscope/main.go
package main

import (
	"os"

	"proscope/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
