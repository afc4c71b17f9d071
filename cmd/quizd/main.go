package main

import (
	"os"

	"github.com/ad/go-telegram-quiz/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
