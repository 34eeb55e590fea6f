package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "payscore",
		Short:         "PayScore signing and decryption toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newSerialCommand(),
		newSignCommand(),
		newDecryptCommand(),
		newEncryptFieldCommand(),
		newCertificatesCommand(),
		newOrderCommand(),
	)

	return root
}

// readArg returns s, or the contents of the file it names when prefixed with @.
func readArg(s string) ([]byte, error) {
	if name, ok := strings.CutPrefix(s, "@"); ok {
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}

		return data, nil
	}

	return []byte(s), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
