package main

import (
	"os"

	"github.com/ANIKETSHETTY47/meter-data-loader/internal/cli"
)

func main() {
	os.Exit(cli.Execute(cli.NewSingleCommand()))
}
