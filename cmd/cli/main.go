// Chronicler - Shroud of the Avatar Companion
//
// Chronicler reads the chat logs and offline save games the game already
// writes, tallying combat stats, searching history and editing saves.
package main

import (
	"os"

	"chronicler/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
