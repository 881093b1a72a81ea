// Command malrag is the malware-analysis retrieval server and CLI.
//
// serve runs the MCP server on stdio; ingest, analyze, and status drive
// the pipeline directly for scripting and local use.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/malrag-mcp/internal/config"
	"github.com/dshills/malrag-mcp/internal/corpus"
	"github.com/dshills/malrag-mcp/internal/mcp"
	"github.com/dshills/malrag-mcp/internal/router"
	"github.com/dshills/malrag-mcp/pkg/types"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configPath string
	logger     *slog.Logger
)

func main() {
	// stdout is reserved for MCP protocol and command output
	logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	root := &cobra.Command{
		Use:     "malrag",
		Short:   "Malware-analysis retrieval pipeline",
		Version: fmt.Sprintf("%s (built %s, sqlite %s/%s)", version, buildTime, corpus.BuildMode, corpus.DriverName),
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")

	root.AddCommand(serveCmd(), ingestCmd(), analyzeCmd(), statusCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

func newServer() (*mcp.Server, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return mcp.NewServer(cfg, logger)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			server, err := newServer()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("starting MCP server", "version", version)
			return server.Serve(ctx)
		},
	}
}

func ingestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <directory>",
		Short: "Ingest a directory of samples into the corpus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			server, err := newServer()
			if err != nil {
				return err
			}
			defer server.Close()

			stats, err := server.Ingest(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Printf("processed %d files, %d chunks (%d skipped, %d failed, %d duplicates)\n",
				stats.FilesProcessed, stats.ChunksIngested, stats.FilesSkipped, stats.FilesFailed, stats.Duplicates)
			return nil
		},
	}
}

func analyzeCmd() *cobra.Command {
	var kind string
	var withReport bool

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze a suspicious file against the corpus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			server, err := newServer()
			if err != nil {
				return err
			}
			defer server.Close()

			out, err := server.AnalyzeText(cmd.Context(), router.Request{
				Kind:    types.ContentKind(kind),
				Content: string(content),
			}, withReport)
			if err != nil {
				return err
			}

			fmt.Println(out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", string(types.KindSourceCode),
		"content kind: source-code, binary-features, or free-text")
	cmd.Flags().BoolVar(&withReport, "report", false, "generate the LLM report")

	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print corpus statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			server, err := newServer()
			if err != nil {
				return err
			}
			defer server.Close()

			out, err := server.Status(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Println(out)
			return nil
		},
	}
}
