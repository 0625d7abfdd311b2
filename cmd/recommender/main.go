package main

import (
	"os"

	"github.com/starbank/recommender/cmd/recommender/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
