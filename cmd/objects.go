package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jcdickinson/astdocs/internal/config"
	"github.com/jcdickinson/astdocs/internal/db"
	"github.com/jcdickinson/astdocs/internal/graph"
	"github.com/jcdickinson/astdocs/internal/registry"
	"github.com/jcdickinson/astdocs/internal/toc"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var fromIndex bool

// collectObjects renders path for its side effect on the objects
// accumulator, or loads the accumulator saved by `astdocs index`.
func collectObjects(ctx context.Context, args []string) (*registry.Objects, error) {
	if fromIndex {
		database, err := db.New(config.IndexPath())
		if err != nil {
			return nil, fmt.Errorf("opening index: %w", err)
		}
		defer database.Close()
		return database.LoadObjects()
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("a path is required unless --from-index is set")
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger()
	p := newPipeline(cfg, logger)
	if _, err := renderArg(ctx, p, args[0]); err != nil {
		if p.Objects().Len() == 0 {
			return nil, err
		}
		logger.WithError(err).Warn("Some modules failed to render")
	}
	return p.Objects(), nil
}

var tocCmd = &cobra.Command{
	Use:   "toc [path]",
	Short: "Print a Markdown table of contents of the documented objects",
	Example: `  astdocs toc src/pkg
  astdocs toc --prefix docs --heading src/pkg
  astdocs toc --from-index`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTOC,
}

var (
	tocPrefix  string
	tocHeading bool
)

func init() {
	tocCmd.Flags().StringVar(&tocPrefix, "prefix", ".", "path prefix of the generated links")
	tocCmd.Flags().BoolVar(&tocHeading, "heading", false, "add a \"Table of Contents\" heading")
	tocCmd.Flags().BoolVar(&fromIndex, "from-index", false, "read objects from the saved index instead of rendering")
	tocCmd.Flags().StringVar(&moduleName, "module", "", "module name for source read from stdin")
}

func runTOC(cmd *cobra.Command, args []string) error {
	objs, err := collectObjects(cmd.Context(), args)
	if err != nil {
		return err
	}
	if tocHeading {
		fmt.Fprintln(cmd.OutOrStdout(), toc.Page(objs, tocPrefix))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), toc.Generate(objs, tocPrefix))
	return nil
}

var graphCmd = &cobra.Command{
	Use:   "graph [path]",
	Short: "Print the object graph as D3 force-graph JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runGraph,
}

func init() {
	graphCmd.Flags().BoolVar(&fromIndex, "from-index", false, "read objects from the saved index instead of rendering")
	graphCmd.Flags().StringVar(&moduleName, "module", "", "module name for source read from stdin")
}

func runGraph(cmd *cobra.Command, args []string) error {
	objs, err := collectObjects(cmd.Context(), args)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(graph.Build(objs), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding graph: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

var objectsCmd = &cobra.Command{
	Use:   "objects [path]",
	Short: "Dump the objects accumulator (module → functions, classes, imports)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runObjects,
}

var objectsFormat string

func init() {
	objectsCmd.Flags().StringVar(&objectsFormat, "format", "json", "output format: json or yaml")
	objectsCmd.Flags().BoolVar(&fromIndex, "from-index", false, "read objects from the saved index instead of rendering")
	objectsCmd.Flags().StringVar(&moduleName, "module", "", "module name for source read from stdin")
}

func runObjects(cmd *cobra.Command, args []string) error {
	objs, err := collectObjects(cmd.Context(), args)
	if err != nil {
		return err
	}

	var out []byte
	switch objectsFormat {
	case "json":
		out, err = json.MarshalIndent(objs, "", "  ")
	case "yaml":
		out, err = yaml.Marshal(objs)
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", objectsFormat)
	}
	if err != nil {
		return fmt.Errorf("encoding objects: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

var indexCmd = &cobra.Command{
	Use:   "index <path>",
	Short: "Render path and save its objects to the local index",
	Long: `Render every module below path and store the resulting objects in the
SQLite index, so that "toc --from-index" and "graph --from-index" can reuse
them. Modules already in the index are replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
	objs, err := collectObjects(cmd.Context(), args)
	if err != nil {
		return err
	}

	database, err := db.New(config.IndexPath())
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	defer database.Close()

	if err := database.SaveObjects(objs); err != nil {
		return fmt.Errorf("saving objects: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d modules indexed in %s\n", objs.Len(), config.IndexPath())
	return nil
}
