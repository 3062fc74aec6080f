package cmd

import (
	"fmt"
	"log"

	"WaveSplit/config"
	"WaveSplit/db"
	"WaveSplit/repository"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List stored projects",
	Long:  `List every project in the local store with its files and split progress.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		if err := db.ConnectDB(cfg); err != nil {
			log.Fatalf("Failed to open project store: %v", err)
		}
		defer db.CloseDB()

		repo, err := repository.NewSQLiteProjectRepository(db.DB)
		if err != nil {
			log.Fatalf("Failed to load projects: %v", err)
		}

		projects, err := repo.GetProjects()
		if err != nil {
			log.Fatalf("Failed to list projects: %v", err)
		}
		if len(projects) == 0 {
			fmt.Println("No projects stored.")
			return
		}

		title := color.New(color.FgCyan, color.Bold)
		split := color.New(color.FgGreen)
		unsplit := color.New(color.FgYellow)

		for _, p := range projects {
			title.Printf("%s", p.Name)
			fmt.Printf("  (%s, created %s)\n", p.ID, p.CreatedAt.Format("2006-01-02 15:04"))
			if p.Description != "" {
				fmt.Printf("  %s\n", p.Description)
			}
			for _, f := range p.Files {
				if f.Segments != nil {
					state := "reviewing"
					if f.Committed {
						state = "committed"
					}
					split.Printf("  %-40s %d segments (%s)\n", f.FileName, len(f.Segments), state)
				} else {
					unsplit.Printf("  %-40s not split\n", f.FileName)
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(projectsCmd)
}
