// main.go - Admin control tool for hsrelay
package main

import (
	"os"

	"hsrelay/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.Run(version); err != nil {
		os.Exit(1)
	}
}
