package cmd

import (
	"fmt"
	"os"

	"github.com/pawtrait-pals/pawtrait/internal/catalog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newCatalogCmd() *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the style and breed catalogue",
	}
	cmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "Catalogue file (defaults to PAWTRAIT_CATALOG or the built-in catalogue)")

	load := func() (*catalog.Catalog, error) {
		path := catalogPath
		if path == "" {
			path = os.Getenv("PAWTRAIT_CATALOG")
		}
		return loadCatalog(path)
	}

	stylesCmd := &cobra.Command{
		Use:   "styles <species>",
		Short: "List portrait styles for a species",
		Example: `  pawtrait catalog styles dog
  pawtrait catalog styles cat`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := load()
			if err != nil {
				return err
			}
			species, err := catalog.ParseSpecies(args[0])
			if err != nil {
				return err
			}
			styles, err := c.Styles(species)
			if err != nil {
				return err
			}
			return writeYAML(cmd, styles)
		},
	}

	var query string
	breedsCmd := &cobra.Command{
		Use:   "breeds <species>",
		Short: "List or search breeds for a species",
		Example: `  pawtrait catalog breeds dog
  pawtrait catalog breeds cat --query siam`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := load()
			if err != nil {
				return err
			}
			species, err := catalog.ParseSpecies(args[0])
			if err != nil {
				return err
			}
			breeds, err := c.SearchBreeds(species, query)
			if err != nil {
				return err
			}
			return writeYAML(cmd, breeds)
		},
	}
	breedsCmd.Flags().StringVarP(&query, "query", "q", "", "Case-insensitive substring filter")

	cmd.AddCommand(stylesCmd, breedsCmd)
	return cmd
}

func writeYAML(cmd *cobra.Command, v any) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return enc.Close()
}
