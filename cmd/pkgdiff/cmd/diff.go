package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aweris/pkgdiff"
	"github.com/aweris/pkgdiff/internal/treediff"
)

var diffCmd = &cobra.Command{
	Use:   "diff <source> <package> <from> <to>",
	Short: "Show changed files between two versions",
	Long:  "Build the structural diff of two package versions. Unchanged entries are hidden unless --all is set.",
	Args:  cobra.ExactArgs(4),
	RunE:  runDiff,
}

func init() {
	diffCmd.Flags().Bool("json", false, "print the diff tree as JSON")
	diffCmd.Flags().Bool("all", false, "include unchanged entries")
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	all, _ := cmd.Flags().GetBool("all")

	return withSession(func(s *pkgdiff.Session) error {
		res, err := s.Diff(cmd.Context(), args[0], args[1], args[2], args[3])
		if err != nil {
			return err
		}
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res.Tree)
		}
		if n := printTree(os.Stdout, res.Tree, all); n == 0 {
			fmt.Println("(no changes)")
		}
		return nil
	})
}

var markers = map[treediff.Status]string{
	treediff.Added:     "A",
	treediff.Removed:   "D",
	treediff.Modified:  "M",
	treediff.Renamed:   "R",
	treediff.Unchanged: " ",
}

// printTree writes one line per entry and returns how many it wrote.
func printTree(w io.Writer, tree []pkgdiff.DiffFileEntry, all bool) int {
	count := 0
	treediff.Walk(tree, func(e pkgdiff.DiffFileEntry, depth int) {
		if e.Status == treediff.Unchanged && !all {
			return
		}
		name := e.Path
		if e.IsDir() {
			name += "/"
		}
		if e.OldPath != "" {
			name += " <- " + e.OldPath
		}
		fmt.Fprintf(w, "%s %s%s", markers[e.Status], strings.Repeat("  ", depth), name)
		if e.Added > 0 || e.Removed > 0 {
			fmt.Fprintf(w, " (+%d -%d)", e.Added, e.Removed)
		}
		fmt.Fprintln(w)
		count++
	})
	return count
}
