// Package smoke produces the fixed transcript used to check that an
// execution environment can run a program and capture what it prints.
package smoke

import (
	"fmt"
	"io"
	"strings"
)

const (
	// A and B are the operands shown in the arithmetic lines.
	A = 5
	B = 3

	// Label is embedded in the closing line.
	Label = "VS Code Extension"
)

// Numbers is the sequence whose sum is printed.
var Numbers = []int{1, 2, 3, 4, 5}

// Lines returns the transcript, one entry per output line, without newlines.
func Lines() []string {
	return []string{
		"Hello from Python!",
		"Testing Python script execution.",
		fmt.Sprintf("%d + %d = %d", A, B, A+B),
		fmt.Sprintf("%d * %d = %d", A, B, A*B),
		fmt.Sprintf("Sum of %s = %d", formatList(Numbers), sum(Numbers)),
		fmt.Sprintf("Testing %s - Success!", Label),
	}
}

// Expected returns the exact bytes a successful run writes to stdout.
func Expected() string {
	return strings.Join(Lines(), "\n") + "\n"
}

// Write prints the transcript to w. Write errors are returned unchanged.
func Write(w io.Writer) error {
	for _, line := range Lines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func sum(numbers []int) int {
	total := 0
	for _, n := range numbers {
		total += n
	}
	return total
}

// formatList renders numbers as "[1, 2, 3]".
func formatList(numbers []int) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = fmt.Sprint(n)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
