// Package report renders the CLI's -d/-i/-s diagnostic output: pretty
// printed symbol-table/live-range snapshots for -d, indented
// three-address/instruction dumps for -i, and a humanized build
// summary for -s.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/kr/pretty"
	"github.com/kr/text"

	"nanoc/internal/oir"
)

// Debug pretty-prints v (a symbol table, a live-range, a graph) with
// an indented title line, for -d mode.
func Debug(title string, v any) string {
	body := pretty.Sprint(v)
	return title + ":\n" + text.Indent(body, "  ")
}

// Intermediate renders one function's instruction stream under title
// ("three-address", "selected", …), indenting the whole dump the same
// way Debug does so -d and -i output share a visual register.
func Intermediate(title string, fn *oir.Function, printFn func(*oir.Instruction) string) string {
	body := oir.PrintFunction(fn, printFn)
	return title + ":\n" + text.Indent(body, "  ")
}

// Summary is the data -s prints: one row per compiled function plus
// overall timing, humanized the way a build-statistics report reads.
type Summary struct {
	Functions []FunctionSummary
	Elapsed   time.Duration
}

// FunctionSummary is one function's row in the -s report.
type FunctionSummary struct {
	Name           string
	Blocks         int
	Instructions   int
	LocalBytes     int
	SpilledRanges  int
	Warnings       int
}

// String renders the summary as a fixed-width-ish table; humanize
// turns byte and instruction counts into the comma-grouped form a
// build-statistics report is expected to use.
func (s Summary) String() string {
	var b strings.Builder
	totalInstr := 0
	totalBytes := 0
	for _, f := range s.Functions {
		totalInstr += f.Instructions
		totalBytes += f.LocalBytes
		fmt.Fprintf(&b, "%-20s blocks=%-4d instrs=%-8s locals=%-10s spilled=%-4d warnings=%d\n",
			f.Name, f.Blocks, humanize.Comma(int64(f.Instructions)), humanize.Bytes(uint64(f.LocalBytes)), f.SpilledRanges, f.Warnings)
	}
	fmt.Fprintf(&b, "total: %d function(s), %s instruction(s), %s locals, %s elapsed\n",
		len(s.Functions), humanize.Comma(int64(totalInstr)), humanize.Bytes(uint64(totalBytes)), s.Elapsed)
	return b.String()
}
