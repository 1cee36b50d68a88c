package main

import (
	"os"

	"github.com/zjy-dev/ccover/cmd/ccover/app"
	"github.com/zjy-dev/ccover/internal/report"
)

func main() {
	if err := app.NewCcoverCommand().Execute(); err != nil {
		report.NewTerminal(os.Stderr, report.Options{}).Failure(err)
		os.Exit(1)
	}
}
