package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aweris/pkgdiff"
)

var contentCmd = &cobra.Command{
	Use:   "content <source> <package> <from> <to> <path>",
	Short: "Show the diff of one file",
	Long:  "Diff both versions, then print the content diff of path. Use --old-path for files renamed between versions.",
	Args:  cobra.ExactArgs(5),
	RunE:  runContent,
}

func init() {
	contentCmd.Flags().String("old-path", "", "path of the file in the older version")
	rootCmd.AddCommand(contentCmd)
}

func runContent(cmd *cobra.Command, args []string) error {
	oldPath, _ := cmd.Flags().GetString("old-path")

	return withSession(func(s *pkgdiff.Session) error {
		if _, err := s.Diff(cmd.Context(), args[0], args[1], args[2], args[3]); err != nil {
			return err
		}
		res, err := s.FileDiff(cmd.Context(), args[4], oldPath)
		if err != nil {
			return err
		}
		fmt.Println(res.Data)
		return nil
	})
}
