package main

import (
	"os"

	"github.com/pterm/pterm"

	"yoco/stocksync/cmd/yococtl/commands"
)

func main() {
	if err := commands.RootCmd.Execute(); err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(1)
	}
}
