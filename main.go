package main

import (
	"os"

	"github.com/jaeles-project/sitesearch/cmd"
	"github.com/jaeles-project/sitesearch/core"
)

func main() {
	if err := cmd.Execute(); err != nil {
		core.Logger.Error(err)
		os.Exit(1)
	}
}
