// cmd/zule/main.go
package main

import (
	"os"

	"github.com/arc-language/zule/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
