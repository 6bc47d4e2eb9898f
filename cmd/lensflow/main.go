// Package main provides the lensflow CLI for offline pipeline work:
// validating definition files and listing registered pipelines.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/lensflow/lensflow/pkg/cmd"
	"github.com/lensflow/lensflow/pkg/log"
	"github.com/lensflow/lensflow/pkg/models"
	"github.com/lensflow/lensflow/pkg/pipeline"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "lensflow",
		Usage:                 "Validate and inspect analysis pipelines",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "error",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			validateCommand(),
			listCommand(),
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Validate a pipeline definition file against the tool catalog",
		ArgsUsage: "<pipeline.json>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "manifests-path",
				Usage:   "Path to the directory containing tool manifests",
				Value:   "./manifests",
				Sources: cli.EnvVars("MANIFESTS_PATH"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			path := command.Args().First()
			if path == "" {
				return fmt.Errorf("usage: lensflow validate <pipeline.json>")
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}

			var def models.PipelineDefinition
			if err := json.Unmarshal(data, &def); err != nil {
				return fmt.Errorf("failed to parse %s: %w", path, err)
			}

			cat, err := cmd.NewCatalog(ctx, log.WithModule("cli"), command.String("manifests-path"))
			if err != nil {
				return err
			}

			validationErrs := pipeline.Validate(&def, cat)
			if len(validationErrs) == 0 {
				fmt.Printf("pipeline %s is valid (%d nodes, %d edges)\n", def.ID, len(def.Nodes), len(def.Edges))

				return nil
			}

			for _, validationErr := range validationErrs.Strings() {
				fmt.Fprintln(os.Stderr, validationErr)
			}

			return fmt.Errorf("pipeline %s failed validation with %d error(s)", def.ID, len(validationErrs))
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List pipelines in the store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Pipeline store location (directory or postgres:// URL)",
				Value:   "./data/pipelines",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			st, err := cmd.NewStore(ctx, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() { _ = st.Close(ctx) }()

			pipelines, err := st.Pipelines(ctx)
			if err != nil {
				return err
			}

			if len(pipelines) == 0 {
				fmt.Println("no pipelines registered")

				return nil
			}

			for _, def := range pipelines {
				fmt.Printf("%s\t%s\t%d nodes\t%d edges\n", def.ID, def.Name, len(def.Nodes), len(def.Edges))
			}

			return nil
		},
	}
}
