// Package cli holds small interactive-CLI helpers shared by the
// transcriptprune subcommands: browser launching and the bufio-driven
// boundary-picker prompt used by `prune --boundary`.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/transcriptprune/transcriptprune/internal/boundary"
)

// PromptBoundaryChoice renders the boundary list (newest first, as Analyze
// already orders them) and asks the operator to pick one by number. It
// returns the chosen boundary's LineNumber and true. Blank input (cancel) or
// an empty boundary list returns false with a nil error; a non-numeric or
// out-of-range answer returns an error.
func PromptBoundaryChoice(in io.Reader, out io.Writer, boundaries []boundary.Boundary) (int, bool, error) {
	if len(boundaries) == 0 {
		fmt.Fprintln(out, "No candidate boundaries found in this transcript.")
		return 0, false, nil
	}

	fmt.Fprintln(out, "Candidate boundaries:")
	fmt.Fprintln(out)
	for i, b := range boundaries {
		fmt.Fprintf(out, "  %d. line %d  (%d%% retained)  %s — %s\n",
			i+1, b.LineNumber, b.RetentionPercentage, b.Kind, b.Description)
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, "Pick a boundary to prune to [1-"+strconv.Itoa(len(boundaries))+", blank to cancel]: ")

	reader := bufio.NewReader(in)
	answer, _ := reader.ReadString('\n')
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return 0, false, nil
	}

	choice, err := strconv.Atoi(answer)
	if err != nil || choice < 1 || choice > len(boundaries) {
		return 0, false, fmt.Errorf("invalid choice %q", answer)
	}

	return boundaries[choice-1].LineNumber, true, nil
}
