package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Re-render split documentation whenever a Python file changes",
	Long: `Render dir like "astdocs split", then keep watching it and render again
after .py files are written, created, renamed or removed.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var (
	watchOut   string
	watchDelay time.Duration
)

func init() {
	watchCmd.Flags().StringVarP(&watchOut, "out", "o", "docs", "output directory")
	watchCmd.Flags().DurationVar(&watchDelay, "delay", 200*time.Millisecond, "quiet period before re-rendering")
	watchCmd.Flags().BoolVar(&splitFrontMatter, "front-matter", false, "prepend YAML front matter naming each object")
	watchCmd.Flags().BoolVar(&splitTOC, "toc", false, "write a table of contents to index.md")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()
	if !debug {
		logger.SetLevel(logrus.InfoLevel)
	}
	dir := args[0]

	rebuild := func() {
		// writeSplit may set a default split mode; keep the loaded config
		// untouched between runs.
		runCfg := *cfg
		written, err := writeSplit(cmd.Context(), &runCfg, logger, dir, watchOut)
		if err != nil {
			logger.WithError(err).Error("Render failed")
		}
		logger.WithField("files", len(written)).Info("Documentation updated")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	outAbs, _ := filepath.Abs(watchOut)
	if err := setupWatcher(watcher, dir, outAbs); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	rebuild()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.WithField("dir", dir).Info("Watching for changes")
	return watchLoop(ctx, watcher, logger, outAbs, watchDelay, rebuild)
}

// watchLoop coalesces bursts of events into one rebuild per quiet period.
func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, logger *logrus.Logger, skip string, delay time.Duration, rebuild func()) error {
	timer := time.NewTimer(delay)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			// Also watch new directories
			if event.Op&fsnotify.Create != 0 {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := setupWatcher(watcher, event.Name, skip); err != nil {
						logger.WithField("dir", event.Name).WithError(err).Warn("Failed to watch new directory")
					}
					continue
				}
			}

			if filepath.Ext(event.Name) != ".py" {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.WithField("file", event.Name).Debug("Source changed")
			timer.Reset(delay)
		case <-timer.C:
			rebuild()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Warn("Watcher error")
		}
	}
}

// setupWatcher adds root and every directory below it, except hidden
// directories and the output directory.
func setupWatcher(watcher *fsnotify.Watcher, root, skip string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(info.Name(), ".") {
			return filepath.SkipDir
		}
		if abs, err := filepath.Abs(path); err == nil && abs == skip {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
