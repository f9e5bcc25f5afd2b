package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/stockfloat/internal/app"
	"github.com/andresuchdata/stockfloat/internal/config"
	"github.com/andresuchdata/stockfloat/pkg/logger"
)

type appKey struct{}

func main() {
	cliApp := newCLI(config.Load, os.Stdout)
	if err := cliApp.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("floatctl failed")
	}
}

// newCLI builds the command tree. loadConfig is called once per command.
func newCLI(loadConfig func() *config.Config, out io.Writer) *cli.App {
	openApp := func(c *cli.Context) error {
		cfg := loadConfig()
		logger.SetLevel(c.String("log-level"))
		a, err := app.New(c.Context, cfg)
		if err != nil {
			return err
		}
		c.Context = context.WithValue(c.Context, appKey{}, a)
		return nil
	}
	closeApp := func(c *cli.Context) error {
		if a, ok := c.Context.Value(appKey{}).(*app.App); ok && a != nil {
			return a.Close()
		}
		return nil
	}
	command := func(cmd *cli.Command) *cli.Command {
		cmd.Before = openApp
		cmd.After = closeApp
		return cmd
	}

	return &cli.App{
		Name:      "floatctl",
		Usage:     "Ingest sales workbooks and project stock float",
		Writer:    out,
		ErrWriter: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				EnvVars: []string{"FLOATCTL_LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			command(&cli.Command{
				Name:      "ingest",
				Usage:     "Ingest one or more workbooks into a category",
				ArgsUsage: "FILE...",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "category",
						Aliases:  []string{"c"},
						Usage:    "stock-on-hand, exports or sales-depletion",
						Required: true,
					},
				},
				Action: runIngest,
			}),
			command(&cli.Command{
				Name:   "project",
				Usage:  "Compute the stock float projection",
				Flags:  append(filterFlags(), formatFlag()),
				Action: runProject,
			}),
			command(&cli.Command{
				Name:   "alerts",
				Usage:  "List low stock float alerts",
				Flags:  append(filterFlags(), formatFlag()),
				Action: runAlerts,
			}),
			command(&cli.Command{
				Name:   "markets",
				Usage:  "List available market codes",
				Action: runMarkets,
			}),
			command(&cli.Command{
				Name:  "drive-sync",
				Usage: "Ingest (or just download) every workbook in a Google Drive folder",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "folder-id",
						Usage:   "Drive folder ID",
						EnvVars: []string{"GOOGLE_DRIVE_FOLDER_ID"},
					},
					&cli.StringFlag{
						Name:  "download-dir",
						Usage: "Only download the workbooks into this directory",
					},
				},
				Action: runDriveSync,
			}),
			command(&cli.Command{
				Name:  "archive-pull",
				Usage: "List archived uploads or re-ingest one",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "key",
						Usage: "Archive key to re-ingest; lists the archive when empty",
					},
					&cli.StringFlag{
						Name:  "category",
						Usage: "Restrict the listing to one category",
					},
				},
				Action: runArchivePull,
			}),
		},
	}
}

func appFrom(c *cli.Context) (*app.App, error) {
	a, ok := c.Context.Value(appKey{}).(*app.App)
	if !ok || a == nil {
		return nil, fmt.Errorf("application not initialized")
	}
	return a, nil
}
