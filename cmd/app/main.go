package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/pastename/internal"
	pkgconfig "github.com/starford/pastename/pkg/config"
)

var version = "dev"

func loadOptions(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}

	if err := internal.RunMCP(ctx, append(opts, internal.WithLogOutput(os.Stderr))...); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}

	return nil
}

func runPreview(_ context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}

	name, err := internal.Preview(opts,
		cmd.String("template"),
		cmd.String("file-name"),
		cmd.String("image-name-key"),
		cmd.String("ext"),
		time.Now())
	if err != nil {
		return err
	}

	fmt.Println(name)
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "pastename",
		Usage:   "Rename pasted images in a Markdown vault from a template and fix the link in the active note",
		Version: version,
		Action:  run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Watch the vault and serve the HTTP API (default)",
				Action: run,
			},
			{
				Name:   "mcp",
				Usage:  "Watch the vault and serve MCP tools on stdio",
				Action: runMCP,
			},
			{
				Name:   "preview",
				Usage:  "Print the name a pasted image would get right now",
				Action: runPreview,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "template",
						Aliases: []string{"t"},
						Usage:   "Template to render (default: the saved template)",
					},
					&cli.StringFlag{
						Name:  "file-name",
						Usage: "Base name of the active note for {{fileName}}",
					},
					&cli.StringFlag{
						Name:  "image-name-key",
						Usage: "Frontmatter value for {{imageNameKey}}",
					},
					&cli.StringFlag{
						Name:  "ext",
						Usage: "Image extension",
						Value: "png",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
