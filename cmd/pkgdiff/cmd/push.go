package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var pushCmd = &cobra.Command{
	Use:   "push <package> <version> <archive>",
	Short: "Publish an archive to the OCI repository",
	Long:  "Store a package archive as a single-layer image so the \"oci\" source can serve it. Requires --oci-repository.",
	Args:  cobra.ExactArgs(3),
	RunE:  runPush,
}

func init() {
	rootCmd.AddCommand(pushCmd)
}

func runPush(cmd *cobra.Command, args []string) error {
	repo := viper.GetString("oci_repository")
	if repo == "" {
		return fmt.Errorf("push requires --oci-repository")
	}
	pkg, version, file := args[0], args[1], args[2]

	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	oci, err := newOCI(repo)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Pushing %s@%s to %s...\n", pkg, version, oci)

	ref, err := oci.Push(cmd.Context(), pkg, version, data)
	if err != nil {
		return fmt.Errorf("push failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Done. Ref: %s\n", ref)
	return nil
}
