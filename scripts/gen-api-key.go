package main

import (
	"fmt"
	"os"

	"github.com/telenexus/gateway-server-go/internal/util"
)

// Prints a fresh API key secret and its stored hash, for seeding a key
// row by hand. The secret is only recoverable from this output.
func main() {
	secret, err := util.GenerateAPIKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("secret: %s\n", secret)
	fmt.Printf("hash:   %s\n", util.HashToken(secret))
	fmt.Printf("masked: %s\n", util.MaskKey(secret))
}
