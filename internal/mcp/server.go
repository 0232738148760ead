package mcp

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jcdickinson/astdocs/internal/cas"
	"github.com/jcdickinson/astdocs/internal/graph"
	"github.com/jcdickinson/astdocs/internal/pipeline"
	"github.com/jcdickinson/astdocs/internal/render"
	"github.com/jcdickinson/astdocs/internal/toc"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"
)

//go:embed instructions.md
var instructions string

type Config struct {
	Options render.Options
	Fs      afero.Fs
	Logger  *logrus.Logger
	Cache   *cas.Store
	// RemovePrefix is stripped from file paths before they become module
	// names.
	RemovePrefix string
	CacheSize    int
	CacheTTL     time.Duration
}

type Server struct {
	mcpServer *server.MCPServer
	cfg       Config
	group     singleflight.Group
	results   *expirable.LRU[string, string]
}

func NewServer(cfg Config) *Server {
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 128
	}

	s := &Server{
		cfg:     cfg,
		results: expirable.NewLRU[string, string](cfg.CacheSize, nil, cfg.CacheTTL),
	}

	mcpServer := server.NewMCPServer(
		"astdocs",
		"0.1.0",
		server.WithInstructions(instructions),
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)

	s.mcpServer = mcpServer
	return s
}

func withPrivate() mcp.ToolOption {
	return mcp.WithBoolean("show_private",
		mcp.Description("Also document underscore-prefixed objects (default from configuration)"),
	)
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(
		mcp.NewTool("render_module",
			mcp.WithDescription("Render the Markdown documentation of a single Python file."),
			mcp.WithString("path",
				mcp.Description("Path to the .py file"),
				mcp.Required(),
			),
			withPrivate(),
		),
		s.handleRenderModule,
	)

	mcpServer.AddTool(
		mcp.NewTool("render_object",
			mcp.WithDescription("Render the documentation of one class, method or function of a Python file."),
			mcp.WithString("path",
				mcp.Description("Path to the .py file"),
				mcp.Required(),
			),
			mcp.WithString("object",
				mcp.Description("Dotted path of the object, absolute (pkg.mod.Class.method) or relative to the module (Class.method)"),
				mcp.Required(),
			),
			withPrivate(),
		),
		s.handleRenderObject,
	)

	mcpServer.AddTool(
		mcp.NewTool("render_code",
			mcp.WithDescription("Render the Markdown documentation of Python source passed inline."),
			mcp.WithString("code",
				mcp.Description("Python source code"),
				mcp.Required(),
			),
			mcp.WithString("module",
				mcp.Description("Dotted module name the code is documented under"),
				mcp.Required(),
			),
			withPrivate(),
		),
		s.handleRenderCode,
	)

	mcpServer.AddTool(
		mcp.NewTool("render_tree",
			mcp.WithDescription("Render every Python module below a directory, in lexicographic order. Files that fail to parse are reported and skipped."),
			mcp.WithString("path",
				mcp.Description("Directory to document"),
				mcp.Required(),
			),
			withPrivate(),
		),
		s.handleRenderTree,
	)

	mcpServer.AddTool(
		mcp.NewTool("table_of_contents",
			mcp.WithDescription("List the modules, functions and classes below a file or directory as a Markdown table of contents."),
			mcp.WithString("path",
				mcp.Description("File or directory to document"),
				mcp.Required(),
			),
			mcp.WithString("prefix",
				mcp.Description("Path prefix of the generated links (default \".\")"),
			),
			withPrivate(),
		),
		s.handleTableOfContents,
	)

	mcpServer.AddTool(
		mcp.NewTool("object_graph",
			mcp.WithDescription("Return the object graph of a file or directory as D3 force-graph JSON (nodes and links)."),
			mcp.WithString("path",
				mcp.Description("File or directory to document"),
				mcp.Required(),
			),
		),
		s.handleObjectGraph,
	)
}

// options applies per-call overrides on top of the configured options.
func (s *Server) options(args map[string]any) render.Options {
	opts := s.cfg.Options
	if private, ok := args["show_private"].(bool); ok {
		opts.ShowPrivate = private
	}
	return opts
}

func (s *Server) pipeline(opts render.Options) *pipeline.Pipeline {
	options := []pipeline.Option{
		pipeline.WithFs(s.cfg.Fs),
		pipeline.WithLogger(s.cfg.Logger),
		pipeline.WithRemovePrefix(s.cfg.RemovePrefix),
	}
	if s.cfg.Cache != nil {
		options = append(options, pipeline.WithCache(s.cfg.Cache))
	}
	return pipeline.New(opts, options...)
}

// cached collapses concurrent identical calls and keeps their result for
// the configured TTL. Failures are not cached.
func (s *Server) cached(key string, work func() (string, error)) (string, error) {
	if text, ok := s.results.Get(key); ok {
		return text, nil
	}
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		text, err := work()
		if err != nil {
			return "", err
		}
		s.results.Add(key, text)
		return text, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func key(tool string, opts render.Options, parts ...string) string {
	return cas.Key(append([]string{tool, fmt.Sprintf("%+v", opts)}, parts...)...)
}

func (s *Server) handleRenderModule(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return mcp.NewToolResultError("missing required parameter: path"), nil
	}

	opts := s.options(args)
	text, err := s.cached(key("render_module", opts, path), func() (string, error) {
		return s.pipeline(opts).Render(ctx, path)
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("render failed: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleRenderObject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	object, _ := args["object"].(string)
	if path == "" || object == "" {
		return mcp.NewToolResultError("missing required parameters: path and object"), nil
	}

	opts := s.options(args)
	text, err := s.cached(key("render_object", opts, path, object), func() (string, error) {
		return s.pipeline(opts).RenderObject(ctx, path, object)
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("render failed: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleRenderCode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	code, _ := args["code"].(string)
	module, _ := args["module"].(string)
	if module == "" {
		return mcp.NewToolResultError("missing required parameter: module"), nil
	}

	opts := s.options(args)
	text, err := s.cached(key("render_code", opts, module, code), func() (string, error) {
		return s.pipeline(opts).RenderCode(ctx, code, module)
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("render failed: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleRenderTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return mcp.NewToolResultError("missing required parameter: path"), nil
	}

	opts := s.options(args)
	text, err := s.cached(key("render_tree", opts, path), func() (string, error) {
		text, err := s.pipeline(opts).RenderRecursively(ctx, path)
		if err != nil && text != "" {
			return text + "\n\nSkipped:\n\n- " + strings.ReplaceAll(err.Error(), "\n", "\n- ") + "\n", nil
		}
		return text, err
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("render failed: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleTableOfContents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return mcp.NewToolResultError("missing required parameter: path"), nil
	}
	prefix, _ := args["prefix"].(string)

	opts := s.options(args)
	text, err := s.cached(key("table_of_contents", opts, path, prefix), func() (string, error) {
		p := s.pipeline(opts)
		if _, err := p.RenderPath(ctx, path); err != nil {
			return "", err
		}
		return toc.Generate(p.Objects(), prefix), nil
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("table of contents failed: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleObjectGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return mcp.NewToolResultError("missing required parameter: path"), nil
	}

	opts := s.options(args)
	text, err := s.cached(key("object_graph", opts, path), func() (string, error) {
		p := s.pipeline(opts)
		if _, err := p.RenderPath(ctx, path); err != nil {
			return "", err
		}
		data, err := json.MarshalIndent(graph.Build(p.Objects()), "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding graph: %w", err)
		}
		return string(data), nil
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("object graph failed: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) Shutdown(_ context.Context) error {
	s.results.Purge()
	return nil
}
