// Command mediflash is a local flashcard CLI backed by a SQLite database.
// It manages decks, imports cards and runs study sessions in the terminal.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
