package cmd

import (
	"context"
	"fmt"

	"github.com/jcdickinson/astdocs/internal/config"
	"github.com/jcdickinson/astdocs/internal/postrender"
	"github.com/jcdickinson/astdocs/internal/render"
	"github.com/jcdickinson/astdocs/internal/split"
	"github.com/jcdickinson/astdocs/internal/toc"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var splitCmd = &cobra.Command{
	Use:   "split <path>",
	Short: "Render path into one Markdown file per split unit",
	Long: `Render path with split markers and write each unit to its own file below
--out: pkg.mod becomes pkg/mod.md, pkg.mod.Class becomes pkg/mod/Class.md.
Splitting by module is assumed when --split-by is not set.`,
	Example: `  astdocs split --out docs src/pkg
  astdocs split --split-by mc --toc --front-matter --out docs src/pkg`,
	Args: cobra.ExactArgs(1),
	RunE: runSplit,
}

var (
	splitOut         string
	splitFrontMatter bool
	splitTOC         bool
)

func init() {
	splitCmd.Flags().StringVarP(&splitOut, "out", "o", "docs", "output directory")
	splitCmd.Flags().BoolVar(&splitFrontMatter, "front-matter", false, "prepend YAML front matter naming each object")
	splitCmd.Flags().BoolVar(&splitTOC, "toc", false, "write a table of contents to index.md")
}

func runSplit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	written, err := writeSplit(cmd.Context(), cfg, logger, args[0], splitOut)
	for _, f := range written {
		fmt.Fprintln(cmd.OutOrStdout(), f)
	}
	return err
}

// writeSplit renders path and writes the split files below out. Files
// written before a failure are still reported.
func writeSplit(ctx context.Context, cfg *config.Config, logger *logrus.Logger, path, out string) ([]string, error) {
	if cfg.SplitBy == "" {
		cfg.SplitBy = string(render.SplitModules)
	}
	p := newPipeline(cfg, logger)

	stream, renderErr := p.RenderPath(ctx, path)
	if stream == "" && renderErr != nil {
		return nil, renderErr
	}
	stream = postrender.Lint(stream)

	parts := split.Split(stream)
	if splitTOC {
		parts = split.WithIndex(parts, toc.Page(p.Objects(), "."))
	}

	written, err := split.WriteFiles(afero.NewOsFs(), out, parts, split.Options{FrontMatter: splitFrontMatter})
	if err != nil {
		return written, err
	}
	logger.WithFields(logrus.Fields{"files": len(written), "out": out}).Debug("Wrote split files")
	return written, renderErr
}
