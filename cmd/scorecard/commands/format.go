package commands

import (
	"fmt"
	"strings"

	"github.com/wonny/ecfr-scorecard/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// Every command prints through these helpers
// ═══════════════════════════════════════════════════════════

const (
	doubleRule = "═══════════════════════════════════════════════════════════"
	singleRule = "───────────────────────────────────────────────────────────"
)

// PrintHeader prints a formatted command header
func PrintHeader(title string) {
	fmt.Println()
	fmt.Println(doubleRule)
	fmt.Printf("  %s\n", title)
	fmt.Println(singleRule)
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println(singleRule)
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println()
	fmt.Printf("⚠️  %s\n", message)
	fmt.Println()
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Printf("ℹ️  %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	for i, col := range columns {
		fmt.Printf("%-*s", widths[i], col)
		if i < len(columns)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Println(strings.Repeat("─", totalWidth))
}

// printRunResult prints one pipeline run with its stage results
func printRunResult(run *contracts.RunRecord) {
	PrintHeader("Pipeline Run")
	fmt.Printf("  Run ID    : %s\n", run.RunID)
	fmt.Printf("  Trigger   : %s\n", run.Trigger)
	fmt.Printf("  Status    : %s\n", run.Status)
	if run.SnapshotID != "" {
		fmt.Printf("  Snapshot  : %s\n", run.SnapshotID)
	}
	if run.FinishedAt != nil {
		fmt.Printf("  Duration  : %.2fs\n", run.FinishedAt.Sub(run.StartedAt).Seconds())
	}
	PrintSeparator()

	for _, r := range run.Results {
		mark := "✅"
		if !r.Success {
			mark = "❌"
		}
		fmt.Printf("  %s %-4s %6d → %-6d %6dms", mark, r.Stage.ShortName(), r.InputCount, r.OutputCount, r.Duration)
		if r.Error != "" {
			fmt.Printf("  %s", r.Error)
		}
		fmt.Println()
	}

	if run.Ingest != nil {
		PrintSeparator()
		printIngestReport(run.Ingest)
	}
	fmt.Println()
}

// printIngestReport prints per-source checksum outcomes and dropped row counts
func printIngestReport(report *contracts.IngestReport) {
	for _, s := range report.Sources {
		state := "unchanged"
		if s.Ingested {
			state = fmt.Sprintf("ingested (%s rows)", formatNumber(int64(s.Rows)))
		}
		fmt.Printf("  %-12s %s  %s\n", s.SourceID, shortDigest(s.Digest), state)
	}
	fmt.Printf("  Agencies: %s  References: %s  Corrections: %s\n",
		formatNumber(int64(report.Agencies)),
		formatNumber(int64(report.CfrReferences)),
		formatNumber(int64(report.Corrections)))
	if report.Dropped() > 0 {
		fmt.Printf("  Dropped: %d unknown-agency refs, %d unattributed, %d duplicate, %d invalid\n",
			report.DroppedReferences,
			report.UnattributedCorrections,
			report.DuplicateCorrections,
			report.InvalidCorrections)
	}
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

func formatNumber(n int64) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	s := fmt.Sprintf("%d", n)
	var result []rune
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, c)
	}
	return string(result)
}
