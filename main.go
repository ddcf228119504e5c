package main

import (
	"github.com/joho/godotenv"
)

func main() {
	// Best-effort .env load for development setups; absence is normal.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		exitOnError(err)
	}
}
