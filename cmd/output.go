package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/flanksource/clicky"
)

// printEntry writes a cached row using the format selected by the clicky flags
func printEntry(w io.Writer, entry interface{}) error {
	output, err := clicky.Format(entry, clicky.Flags.FormatOptions)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	if !strings.HasSuffix(output, "\n") {
		output += "\n"
	}
	_, err = fmt.Fprint(w, output)
	return err
}
