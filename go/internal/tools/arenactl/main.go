// Command arenactl drives a Grabbit deployment from the terminal: create
// sessions, inspect them, and act on behalf of a player.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
