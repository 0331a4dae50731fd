package main

import (
	"os"

	"github.com/hxuan190/quote-engine/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
