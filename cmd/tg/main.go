package main

import (
	"fmt"
	"os"

	"tinygit/cmd/tg/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Println(commands.Message(err))
		os.Exit(1)
	}
}
