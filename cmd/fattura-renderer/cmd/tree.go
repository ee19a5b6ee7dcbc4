package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var treeCmd = &cobra.Command{
	Use:   "tree <file>",
	Short: "Print the generic element tree of an XML file as JSON",
	Long: `Parse an XML file into the generic element tree and print it as JSON.

Element names become keys in document order, repeated elements become
arrays, attributes are grouped under "attributes" and numeric leaves are
printed as numbers. No invoice semantics are applied.

Examples:
  fattura-renderer tree invoice.xml`,
	Args: cobra.ExactArgs(1),
	RunE: runTree,
}

func init() {
	rootCmd.AddCommand(treeCmd)
}

func runTree(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	tree, err := pipeline.ParseTree(ctx, data)
	if err != nil {
		return err
	}
	return outputJSON(cmd.OutOrStdout(), tree)
}
