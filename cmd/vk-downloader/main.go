package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/alanbriolat/vk-downloader"
	"github.com/alanbriolat/vk-downloader/async"
	"github.com/alanbriolat/vk-downloader/internal/batch"
	"github.com/alanbriolat/vk-downloader/internal/pool"
	"github.com/alanbriolat/vk-downloader/internal/progress"
)

const fetchStreamCommand = "fetch-stream"

func main() {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.Level.SetLevel(zap.InfoLevel)
	config.DisableStacktrace = true
	logger, err := config.Build()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.RedirectStdLog(logger)
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := newApp(ctx, config.Level)
	result := async.Run(func() error { return app.Run(os.Args) })

	select {
	case err = <-result:
	case <-ctx.Done():
		logger.Warn("interrupted, waiting for downloads to stop...")
		stop()
		err = <-result
	}
	if err != nil {
		logger.Fatal(err.Error())
	}
}

func newApp(ctx context.Context, level zap.AtomicLevel) *cli.App {
	return &cli.App{
		Name:      "vk-downloader",
		Usage:     "download videos from VK video pages",
		ArgsUsage: "URL...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "load settings from YAML `FILE`",
			},
			&cli.StringFlag{
				Name:  "target",
				Value: vk_downloader.DefaultConfig.TargetDir,
				Usage: "save downloaded videos to `DIR`",
			},
			&cli.IntFlag{
				Name:    "jobs",
				Aliases: []string{"j"},
				Value:   vk_downloader.DefaultConfig.Jobs,
				Usage:   "download `N` videos at the same time",
			},
			&cli.StringFlag{
				Name:    "quality",
				Aliases: []string{"q"},
				Usage:   "pick resolution without asking: best, worst, or a `LABEL` such as 720p",
			},
			&cli.StringFlag{
				Name:    "batch-file",
				Aliases: []string{"a"},
				Usage:   "read additional page URLs from `FILE`, one per line",
			},
			&cli.BoolFlag{
				Name:  "subprocess",
				Usage: "run each download in a separate process",
			},
			&cli.StringFlag{
				Name:  "user-agent",
				Value: vk_downloader.DefaultUserAgent,
				Usage: "send `UA` as the User-Agent header",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				level.SetLevel(zap.DebugLevel)
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			urls := c.Args().Slice()
			if path := c.String("batch-file"); path != "" {
				fromFile, err := readBatchFile(path)
				if err != nil {
					return err
				}
				urls = append(urls, fromFile...)
			}
			return download(ctx, cfg, urls)
		},
		Commands: []*cli.Command{
			{
				Name:      fetchStreamCommand,
				Usage:     "download a single stream URL (used by --subprocess)",
				ArgsUsage: "STREAM_URL",
				Hidden:    true,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "output",
						Required: true,
						Usage:    "write the stream to `PATH`",
					},
					&cli.StringFlag{
						Name:  "user-agent",
						Value: vk_downloader.DefaultUserAgent,
					},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("expected exactly one stream URL, got %d", c.NArg())
					}
					return fetchStream(ctx, c.Args().First(), c.String("output"), c.String("user-agent"))
				},
			},
		},
		HideHelpCommand: true,
	}
}

// loadConfig starts from the defaults or the --config file, then applies any flags given explicitly.
func loadConfig(c *cli.Context) (vk_downloader.Config, error) {
	cfg := vk_downloader.DefaultConfig
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = vk_downloader.LoadConfig(path); err != nil {
			return cfg, err
		}
	}
	if c.IsSet("target") {
		cfg.TargetDir = c.String("target")
	}
	if c.IsSet("jobs") {
		cfg.Jobs = c.Int("jobs")
	}
	if c.IsSet("quality") {
		cfg.Quality = c.String("quality")
	}
	if c.IsSet("subprocess") {
		cfg.Subprocess = c.Bool("subprocess")
	}
	if c.IsSet("user-agent") {
		cfg.UserAgent = c.String("user-agent")
	}
	return cfg, cfg.Validate()
}

func download(ctx context.Context, cfg vk_downloader.Config, urls []string) error {
	logger := zap.S()
	if len(urls) == 0 {
		logger.Info("no URLs given, nothing to do")
		return nil
	}

	var opts []batch.Option
	if cfg.Subprocess {
		runner, err := subprocessRunner(cfg)
		if err != nil {
			return err
		}
		opts = append(opts, batch.WithRunner(runner))
	}
	b, err := batch.New(cfg, opts...)
	if err != nil {
		return err
	}

	report := b.Run(ctx, urls)
	succeeded := 0
	if report.Tasks != nil {
		succeeded = len(report.Tasks.Succeeded())
	}
	logger.Infof("downloaded %d of %d video(s)", succeeded, len(urls))
	return report.Err()
}

func subprocessRunner(cfg vk_downloader.Config) (*pool.SubprocessRunner, error) {
	executable, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("cannot locate own executable for --subprocess: %w", err)
	}
	return &pool.SubprocessRunner{
		Command: func(ctx context.Context, task vk_downloader.DownloadTask) *exec.Cmd {
			return exec.CommandContext(ctx, executable, fetchStreamCommand,
				"--output", cfg.TargetPath(task.Filename),
				"--user-agent", cfg.UserAgent,
				task.URL,
			)
		},
		Stdout: os.Stderr,
		Stderr: os.Stderr,
	}, nil
}

func fetchStream(ctx context.Context, streamURL string, output string, userAgent string) error {
	bar := progress.NewFileBar(filepath.Base(output))
	d := vk_downloader.NewDownloadBuilder().
		WithContext(ctx).
		WithUserAgent(userAgent).
		WithTargetDir(filepath.Dir(output)).
		WithProgressCallback(func(downloaded int64, expected int64) {
			if bar.GetMax64() != expected {
				bar.ChangeMax64(expected)
			}
			_ = bar.Set64(downloaded)
		}).
		Build()
	if _, err := d.SaveURL(filepath.Base(output), streamURL); err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	return bar.Finish()
}
