package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"

	"github.com/scenescript/scenectl/engine"
	"github.com/scenescript/scenectl/version"
)

func main() {
	app := &cli.Command{
		Name:  "scenectl",
		Usage: "runs scene-script automation scripts against a broker-backed state bus",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "mqtt-url",
				Sources: cli.EnvVars("SCENECTL_MQTT_URL"),
				Usage:   "broker URL (currently informational: the shipped Engine is in-process)",
			},
			&cli.StringFlag{
				Name:    "dir",
				Sources: cli.EnvVars("SCENECTL_SCRIPT_DIR"),
				Usage:   "directory to discover *.scene files in",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a scenectl.yaml sidecar (see DESIGN.md)",
			},
			&cli.BoolFlag{
				Name:    "interactive",
				Aliases: []string{"a"},
				Usage:   "drop into the REPL instead of running files",
			},
			&cli.BoolFlag{
				Name:  "version",
				Usage: "print the version and exit",
				Action: func(ctx context.Context, cmd *cli.Command, b bool) error {
					if b {
						fmt.Println(version.String())
						os.Exit(0)
					}
					return nil
				},
			},
		},
		Action: run,
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("scenectl: %v", err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runID := uuid.New().String()
	log.SetPrefix(fmt.Sprintf("[%s] ", runID[:8]))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		log.Println("scenectl: received interrupt, shutting down")
		cancel()
	}()

	cfg, err := loadConfig(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	mqttURL := firstNonEmpty(cmd.String("mqtt-url"), cfg.MQTTURL)
	if mqttURL != "" {
		log.Printf("scenectl: --mqtt-url=%s accepted but unused (shipped Engine is in-process; see DESIGN.md)", mqttURL)
	}

	eng := engine.NewMemory()

	if cmd.Bool("interactive") {
		if !isatty.IsTerminal(os.Stdin.Fd()) {
			return fmt.Errorf("--interactive requires a terminal on stdin")
		}
		return runInteractiveShell(ctx, eng)
	}

	if args := cmd.Args().Slice(); len(args) > 0 {
		return runAll(ctx, args, eng)
	}

	dir := firstNonEmpty(cmd.String("dir"), cfg.ScriptDir)
	if dir != "" {
		paths, err := discoverScripts(dir)
		if err != nil {
			return fmt.Errorf("discovering scripts in %s: %w", dir, err)
		}
		if len(paths) == 0 {
			return fmt.Errorf("no %s files found in %s", scriptExt, dir)
		}
		return runAll(ctx, paths, eng)
	}

	return runStdin(ctx, os.Stdin, eng)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
