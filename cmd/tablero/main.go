package main

import (
	"os"

	"github.com/imkarma/tablero/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
