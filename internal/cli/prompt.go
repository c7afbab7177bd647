package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Confirm prints a yes/no question and reads the answer. Anything but
// an explicit "y"/"yes" counts as no.
func Confirm(out io.Writer, in io.Reader, question string) (bool, error) {
	if _, err := fmt.Fprintf(out, "%s [y/N]: ", question); err != nil {
		return false, err
	}

	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
