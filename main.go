// Command tell streams an answer to a prompt from a local Ollama model.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sasanktumpati/tell/internal/cli"
)

func main() {
	if err := cli.Run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprintln(os.Stderr, "run `tell --help` for usage")
			os.Exit(2)
		}
		os.Exit(1)
	}
}
