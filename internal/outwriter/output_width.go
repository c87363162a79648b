package outwriter

import (
	"os"

	"github.com/huangsam/ratingfit/internal/contract"
	"golang.org/x/term"
)

// GetMaxTableNameWidth calculates the maximum width for player names in table output
// based on terminal width.
func GetMaxTableNameWidth(cfg *contract.Config) int {
	termWidth := cfg.Width

	if termWidth == 0 { // Not set by override
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Row + Group + Rating + Approx + Delta + Label + Salary, plus borders and padding
	baseWidth := 60

	available := termWidth - baseWidth
	if available < 12 {
		return 12
	}
	if available > 40 {
		return 40
	}
	return available
}
