package cmd

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aweris/pkgdiff"
)

var extractCmd = &cobra.Command{
	Use:   "extract <source> <package> <version> [prefix]",
	Short: "List the files of one package version",
	Long:  "Fetch and extract one package version, optionally filtered by path prefix.",
	Args:  cobra.RangeArgs(3, 4),
	RunE:  runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	prefix := ""
	if len(args) > 3 {
		prefix = args[3]
	}

	return withSession(func(s *pkgdiff.Session) error {
		files, err := s.Extract(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			return err
		}

		count := 0
		for _, path := range slices.Sorted(maps.Keys(files)) {
			if !strings.HasPrefix(path, prefix) {
				continue
			}
			e := files[path]
			if e.IsDir() {
				fmt.Printf("d\t-\t%s/\n", path)
			} else {
				fmt.Printf("f\t%d\t%s\n", len(e.Content), path)
			}
			count++
		}

		if count == 0 {
			fmt.Println("(no entries)")
		}
		return nil
	})
}
