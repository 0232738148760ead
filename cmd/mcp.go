package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jcdickinson/astdocs/internal/cas"
	"github.com/jcdickinson/astdocs/internal/mcp"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run as an MCP server on stdio",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	fs := afero.NewOsFs()
	serverCfg := mcp.Config{
		Options:      cfg.RenderOptions(),
		Fs:           fs,
		Logger:       logger,
		RemovePrefix: removePrefix,
		CacheSize:    cfg.MCP.CacheSize,
		CacheTTL:     time.Duration(cfg.MCP.CacheTTLSeconds) * time.Second,
	}
	if cfg.Cache.Enabled {
		serverCfg.Cache = cas.New(fs, cfg.Cache.Dir)
	}
	server := mcp.NewServer(serverCfg)

	errCh := make(chan error)
	go func() { errCh <- server.Run() }()

	if err := waitForSignal(errCh); err != nil {
		return err
	}
	logger.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

func waitForSignal(errCh chan error) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigs:
		return nil
	case err := <-errCh:
		return err
	}
}
