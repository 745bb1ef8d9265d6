// Command chatctl talks to the configured LLM providers from the terminal.
// It shares the catalog, adapters and history store with chat-server.
package main

import (
	"os"
)

func main() {
	os.Exit(Run(os.Args[1:], NewCliConfig()))
}
