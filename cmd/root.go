package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/jcdickinson/astdocs/internal/cas"
	"github.com/jcdickinson/astdocs/internal/config"
	"github.com/jcdickinson/astdocs/internal/pipeline"
	"github.com/jcdickinson/astdocs/internal/postrender"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	debug        bool
	cfgFile      string
	removePrefix string
	htmlOutput   bool
	lintOutput   bool
	moduleName   string
	objectPath   string
)

var rootCmd = &cobra.Command{
	Use:   "astdocs <path>",
	Short: "Render Markdown documentation from Python source",
	Long: `Parse Python files without importing them and render their docstrings,
signatures and structure as Markdown. <path> is a .py file, a directory
(rendered recursively) or "-" to read source from stdin.`,
	Example: `  astdocs pkg/module.py
  astdocs --show-private --split-by mc src/pkg
  astdocs --object Parser.parse pkg/module.py
  cat snippet.py | astdocs --module snippet -`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRender,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("command failed: %v", err)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&debug, "debug", false, "log debug output to stderr")
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./astdocs.toml or ~/.config/astdocs/astdocs.toml)")
	flags.StringVar(&removePrefix, "remove-prefix", "", "strip this prefix from file paths before deriving module names")

	flags.Bool("bound-objects", false, "wrap each object in %%%START/%%%END markers")
	flags.Int("fold-args-after", 0, "fold signatures longer than this many characters (default 88)")
	flags.Bool("show-private", false, "document underscore-prefixed objects")
	flags.String("split-by", "", "add %%%BEGIN split markers before modules (m), functions (f) and classes (c)")
	flags.Bool("with-linenos", false, "emit %%%SOURCE markers with line ranges")
	flags.Bool("cache", false, "reuse rendered pages from the on-disk cache")

	bind := map[string]string{
		"bound_objects":   "bound-objects",
		"fold_args_after": "fold-args-after",
		"show_private":    "show-private",
		"split_by":        "split-by",
		"with_linenos":    "with-linenos",
		"cache.enabled":   "cache",
	}
	for key, flag := range bind {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			log.Fatalf("binding flag %s: %v", flag, err)
		}
	}

	rootCmd.Flags().BoolVar(&htmlOutput, "html", false, "convert the output to a standalone HTML page")
	rootCmd.Flags().BoolVar(&lintOutput, "lint", false, "tidy whitespace in the rendered Markdown")
	rootCmd.Flags().StringVar(&moduleName, "module", "", "module name for source read from stdin")
	rootCmd.Flags().StringVar(&objectPath, "object", "", "render only this class or function of a .py file (dotted path)")

	rootCmd.AddCommand(tocCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(splitCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(objectsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(cacheCmd)
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	if debug {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// newPipeline builds a pipeline over the OS filesystem from the merged
// configuration.
func newPipeline(cfg *config.Config, logger *logrus.Logger, extra ...pipeline.Option) *pipeline.Pipeline {
	fs := afero.NewOsFs()
	options := []pipeline.Option{
		pipeline.WithFs(fs),
		pipeline.WithLogger(logger),
		pipeline.WithRemovePrefix(removePrefix),
	}
	if cfg.Cache.Enabled {
		options = append(options, pipeline.WithCache(cas.New(fs, cfg.Cache.Dir)))
	}
	return pipeline.New(cfg.RenderOptions(), append(options, extra...)...)
}

// renderArg renders a file or directory, or stdin when path is "-".
// Partial results of a directory run are returned alongside the error.
func renderArg(ctx context.Context, p *pipeline.Pipeline, path string) (string, error) {
	if path != "-" {
		return p.RenderPath(ctx, path)
	}
	if moduleName == "" {
		return "", fmt.Errorf("--module is required when reading from stdin")
	}
	code, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return p.RenderCode(ctx, string(code), moduleName)
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	var extra []pipeline.Option
	if lintOutput {
		extra = append(extra, pipeline.WithPostRender(postrender.Lint))
	}
	p := newPipeline(cfg, logger, extra...)

	var out string
	if objectPath != "" {
		out, err = p.RenderObject(cmd.Context(), args[0], objectPath)
	} else {
		out, err = renderArg(cmd.Context(), p, args[0])
	}
	if out == "" && err != nil {
		return err
	}
	if htmlOutput {
		out = postrender.HTML(out)
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}
