package main

import (
	"fmt"
	"os"

	"github.com/soyeahso/agentchat/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "agentchat:", err)
		os.Exit(1)
	}
}
