package main

import (
	"os"

	"github.com/k-negishi/crm-calendar-sync/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
