// Command newsdex indexes Spanish news articles into vector collections and
// serves hybrid semantic and keyword search over them.
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional, real environment variables win
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
