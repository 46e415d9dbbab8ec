package main

import (
	"os"

	"github.com/lherman-cs/go-rosbag2/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
