package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/erland/pwa-whiteboard-sub000/internal"
	"github.com/erland/pwa-whiteboard-sub000/internal/boardservice"
	"github.com/erland/pwa-whiteboard-sub000/internal/export"
	pkgconfig "github.com/erland/pwa-whiteboard-sub000/pkg/config"
)

var version = "dev"

func loadOptions(cmd *cli.Command) ([]internal.Option, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
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
	return internal.RunMCP(ctx, opts...)
}

func runExport(ctx context.Context, cmd *cli.Command) error {
	boardID := cmd.Args().First()
	if boardID == "" {
		return errors.New("usage: export <board-id>")
	}
	format := cmd.String("format")
	if format != boardservice.FormatPNG && format != boardservice.FormatPDF {
		return fmt.Errorf("unknown format %q", format)
	}
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}

	eo := export.DefaultOptions()
	eo.Scale = cmd.Float("scale")
	eo.Padding = cmd.Float("padding")

	out := cmd.String("out")
	if out == "" {
		out = boardID + "." + format
	}
	var w io.Writer = os.Stdout
	if out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return internal.Export(ctx, boardID, format, w, eo, opts...)
}

func main() {
	cmd := &cli.Command{
		Name:    "whiteboard",
		Usage:   "Whiteboard engine with local board storage, realtime events, search and export",
		Version: version,
		Action:  serve,
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
				Usage:  "Run the HTTP API and SSE stream",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve board tools over MCP stdio",
				Action: runMCP,
			},
			{
				Name:      "export",
				Usage:     "Render a board to PNG or PDF",
				ArgsUsage: "<board-id>",
				Action:    runExport,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: boardservice.FormatPNG, Usage: "png or pdf"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file, - for stdout (default <board-id>.<format>)"},
					&cli.FloatFlag{Name: "scale", Value: 1, Usage: "PNG pixels per world unit"},
					&cli.FloatFlag{Name: "padding", Value: 20, Usage: "Margin around the content in world units"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
