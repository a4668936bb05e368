package main

import (
	"os"

	"github.com/foundry-core/foundry/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
