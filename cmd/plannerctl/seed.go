package main

import (
	"fmt"
	"os"

	"github.com/MediSynth-io/contentplanner/internal/models"
	"github.com/MediSynth-io/contentplanner/internal/seed"
	"github.com/MediSynth-io/contentplanner/internal/store"
	"github.com/spf13/cobra"
)

func newSeedCmd(e *env) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed-templates",
		Short: "Upsert the starter content templates",
		Long: `Upsert content templates by title. Without --file the built-in
solopreneur templates are used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var templates []models.ContentTemplate
			var err error
			if file != "" {
				f, openErr := os.Open(file)
				if openErr != nil {
					return openErr
				}
				defer f.Close()
				templates, err = seed.Parse(f)
			} else {
				templates, err = seed.Defaults()
			}
			if err != nil {
				return err
			}

			db, err := e.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := seed.Apply(cmd.Context(), store.FromDB(db), templates, e.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d templates\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML file of templates to load instead of the defaults")
	return cmd
}
