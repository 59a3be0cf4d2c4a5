// curo is a terminal chat client for text and image prompts.
package main

import (
	"github.com/joho/godotenv"

	"github.com/linanwx/curo/cmd"
)

func main() {
	// A .env next to the binary may carry API keys; it is optional.
	_ = godotenv.Load()
	cmd.Execute()
}
