package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/zjrosen/soundcheck/internal/catalog"
)

var catalogCategory string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the sounds in the catalog",
	Long:  `Display every asset in the catalog grouped by category, with the resource each one loads from.`,
	Args:  cobra.NoArgs,
	RunE:  runCatalog,
}

func init() {
	catalogCmd.Flags().StringVar(&catalogCategory, "category", "", "only list one category (effect or music)")
	rootCmd.AddCommand(catalogCmd)
}

func runCatalog(cmd *cobra.Command, _ []string) error {
	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	categories := []catalog.Category{catalog.Effect, catalog.Music}
	if catalogCategory != "" {
		c, err := catalog.ParseCategory(catalogCategory)
		if err != nil {
			return err
		}
		categories = []catalog.Category{c}
	}

	out := cmd.OutOrStdout()
	for i, c := range categories {
		if i > 0 {
			_, _ = fmt.Fprintln(out)
		}
		printCategory(out, c, cat.FilterByCategory(c))
	}
	return nil
}

func printCategory(out io.Writer, c catalog.Category, assets []catalog.AssetDescriptor) {
	title := "Effects:"
	if c == catalog.Music {
		title = "Music:"
	}
	_, _ = fmt.Fprintln(out, title)
	if len(assets) == 0 {
		_, _ = fmt.Fprintln(out, "  (none)")
		return
	}

	keyLen, nameLen := maxKeyLen(assets), maxNameLen(assets)
	for _, a := range assets {
		_, _ = fmt.Fprintf(out, "  %-*s  %-*s  %s\n", keyLen, a.Key, nameLen, a.DisplayName, a.ResourceName)
	}
}

// maxKeyLen returns the length of the longest asset key in the slice.
func maxKeyLen(assets []catalog.AssetDescriptor) int {
	maxLen := 0
	for _, a := range assets {
		maxLen = max(maxLen, len(a.Key))
	}
	return maxLen
}

func maxNameLen(assets []catalog.AssetDescriptor) int {
	maxLen := 0
	for _, a := range assets {
		maxLen = max(maxLen, len(a.DisplayName))
	}
	return maxLen
}
