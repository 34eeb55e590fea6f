// Command payscore is an operator toolkit for the PayScore protocol: it signs
// sign-strings, decrypts notification resources, encrypts sensitive fields and
// downloads platform certificates.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
