// Package main provides the docindex CLI for document ingestion, retrieval
// and catalog sync against Qdrant.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/docindex/internal/chunker"
	"github.com/bull/docindex/internal/embedding"
	"github.com/bull/docindex/internal/extract"
	"github.com/bull/docindex/internal/filterscore"
	"github.com/bull/docindex/internal/ingest"
	"github.com/bull/docindex/internal/memory"
	"github.com/bull/docindex/internal/retriever"
	"github.com/bull/docindex/internal/source"
	"github.com/bull/docindex/internal/vectorstore"
)

var rootCmd = &cobra.Command{
	Use:   "docindex",
	Short: "Document ingestion and retrieval tool",
	Long: `CLI tool for ingesting documents into Qdrant and querying them.

Environment variables:
  QDRANT_HOST    Qdrant hostname (default: localhost)
  QDRANT_PORT    Qdrant gRPC port (default: 6334)
  OPENAI_API_KEY OpenAI API key for embeddings (required)
  GITHUB_TOKEN   GitHub token for catalog sync (optional)`,
}

var (
	flagOwner      string
	flagDocID      string
	flagShared     bool
	flagTopK       int
	flagMaxTokens  int
	flagDocFilter  []string
	flagRepoOwner  string
	flagRepoName   string
	flagRepoFolder string
	flagRecord     bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Extract, chunk, embed and store a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Retrieve chunks relevant to a query within a token budget",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <document-id>",
	Short: "Remove every stored chunk of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror a GitHub folder into the shared catalog",
	RunE:  runSync,
}

var forgetCmd = &cobra.Command{
	Use:   "forget <owner-id>",
	Short: "Delete every record a user owns, documents and conversations alike",
	Args:  cobra.ExactArgs(1),
	RunE:  runForget,
}

var scoreCmd = &cobra.Command{
	Use:   "score <filters-json>",
	Short: "Validate a filter set and score it against past decisions",
	Long: `Validates numeric filters (range and min/max consistency) and, when an
owner is given, boosts confidence by similarity to that user's past
filter decisions. Filters are a JSON object of numeric fields, e.g.
'{"daMin": 30, "daMax": 80, "price": 500}'.`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	ingestCmd.Flags().StringVar(&flagOwner, "owner", "", "owner user id (required)")
	ingestCmd.Flags().StringVar(&flagDocID, "id", "", "document id (default: filename stem)")
	ingestCmd.Flags().BoolVar(&flagShared, "shared", false, "store in the shared catalog namespace")
	_ = ingestCmd.MarkFlagRequired("owner")

	queryCmd.Flags().StringVar(&flagOwner, "owner", "", "owner user id (required)")
	queryCmd.Flags().IntVar(&flagTopK, "topk", 10, "maximum results")
	queryCmd.Flags().IntVar(&flagMaxTokens, "max-tokens", 4000, "token budget for returned chunks")
	queryCmd.Flags().StringSliceVar(&flagDocFilter, "docs", nil, "restrict to these document ids")
	_ = queryCmd.MarkFlagRequired("owner")

	deleteCmd.Flags().StringVar(&flagOwner, "owner", "", "owner user id (required)")
	deleteCmd.Flags().BoolVar(&flagShared, "shared", false, "delete from the shared catalog namespace")
	_ = deleteCmd.MarkFlagRequired("owner")

	syncCmd.Flags().StringVar(&flagRepoOwner, "repo-owner", "", "GitHub repository owner (required)")
	syncCmd.Flags().StringVar(&flagRepoName, "repo", "", "GitHub repository name (required)")
	syncCmd.Flags().StringVar(&flagRepoFolder, "path", "", "folder within the repository (required)")
	_ = syncCmd.MarkFlagRequired("repo-owner")
	_ = syncCmd.MarkFlagRequired("repo")
	_ = syncCmd.MarkFlagRequired("path")

	scoreCmd.Flags().StringVar(&flagOwner, "owner", "", "score against this user's decision history")
	scoreCmd.Flags().BoolVar(&flagRecord, "record", false, "record the scored decision for future history")

	rootCmd.AddCommand(ingestCmd, queryCmd, deleteCmd, syncCmd, forgetCmd, scoreCmd)
}

func main() {
	// Load .env if present for local development, ignore if missing.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func connectStore() (*vectorstore.Store, error) {
	host := getEnv("QDRANT_HOST", "localhost")
	port := getEnvInt("QDRANT_PORT", 6334)
	store, err := vectorstore.NewStore(host, port)
	if err != nil {
		return nil, fmt.Errorf("connect to Qdrant at %s:%d: %w", host, port, err)
	}
	return store, nil
}

func buildPipeline(store *vectorstore.Store) (*ingest.Pipeline, error) {
	embedder, err := embedding.NewEmbedder(0)
	if err != nil {
		return nil, err
	}
	return ingest.NewPipeline(extract.New(), chunker.New(), embedder, store, chunker.Options{}, slog.Default()), nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	store, err := connectStore()
	if err != nil {
		return err
	}
	defer store.Close()

	pipeline, err := buildPipeline(store)
	if err != nil {
		return err
	}

	docID := flagDocID
	if docID == "" {
		docID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	result, err := pipeline.IngestDocument(ctx, ingest.Upload{
		DocumentID: docID,
		OwnerID:    flagOwner,
		Filename:   filepath.Base(path),
		MIMEType:   mime.TypeByExtension(filepath.Ext(path)),
		Data:       data,
		Shared:     flagShared,
	})
	if err != nil {
		fmt.Println(ingest.FailureReason(err, filepath.Base(path)))
		return err
	}

	fmt.Printf("Ingested %s\n", path)
	fmt.Printf("  Document:  %s\n", result.Document.ID)
	fmt.Printf("  Namespace: %s\n", result.Namespace)
	fmt.Printf("  Chunks:    %d\n", result.ChunkCount)
	fmt.Printf("  Words:     %d\n", result.Document.WordCount)
	fmt.Printf("  Duration:  %s\n", result.Duration.Round(time.Millisecond))
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	query := strings.Join(args, " ")

	store, err := connectStore()
	if err != nil {
		return err
	}
	defer store.Close()

	embedder, err := embedding.NewEmbedder(0)
	if err != nil {
		return err
	}

	r := retriever.New(store, embedder, nil, slog.Default())
	results := r.Retrieve(ctx, query, flagOwner, flagTopK, flagMaxTokens, flagDocFilter)

	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for i, res := range results {
		fmt.Printf("%d. [%.3f] %s (chunk %d, %s, %s)\n", i+1, res.Score, res.DocumentName, res.ChunkIndex, res.ChunkType, res.Priority)
		fmt.Println(indent(res.Text, "   "))
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := connectStore()
	if err != nil {
		return err
	}
	defer store.Close()

	pipeline, err := buildPipeline(store)
	if err != nil {
		return err
	}

	deleted, err := pipeline.DeleteDocument(ctx, flagOwner, args[0], flagShared)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d records of document %s\n", deleted, args[0])
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := connectStore()
	if err != nil {
		return err
	}
	defer store.Close()

	pipeline, err := buildPipeline(store)
	if err != nil {
		return err
	}

	ghClient, err := source.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("create GitHub client: %w", err)
	}
	fetcher := source.NewFetcher(ghClient, flagRepoOwner, flagRepoName, flagRepoFolder)
	syncer := source.NewSyncer(fetcher, pipeline, slog.Default())

	result, err := syncer.SyncAll(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Println("Sync complete!")
	fmt.Printf("  Files:    %d/%d\n", result.SuccessfulFiles, result.TotalFiles)
	fmt.Printf("  Chunks:   %d\n", result.TotalChunks)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Second))
	fmt.Printf("  Commit:   %s\n", result.CommitSHA)

	if len(result.FailedFiles) > 0 {
		fmt.Println("Failed files:")
		for _, failed := range result.FailedFiles {
			fmt.Printf("  - %s: %s\n", failed.Path, failed.Reason)
		}
	}
	return nil
}

func runForget(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ownerID := args[0]

	store, err := connectStore()
	if err != nil {
		return err
	}
	defer store.Close()

	embedder, err := embedding.NewEmbedder(0)
	if err != nil {
		return err
	}

	mem := memory.New(store, embedder, nil, slog.Default())
	deleted, err := mem.DeleteUserData(ctx, ownerID)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d records owned by %s\n", deleted, ownerID)
	return nil
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var filters map[string]float64
	if err := json.Unmarshal([]byte(args[0]), &filters); err != nil {
		return fmt.Errorf("parse filters: %w", err)
	}

	var store *vectorstore.Store
	if flagOwner != "" {
		var err error
		store, err = connectStore()
		if err != nil {
			return err
		}
		defer store.Close()
	}

	var scorer *filterscore.Scorer
	if store != nil {
		scorer = filterscore.New(store, slog.Default())
	} else {
		scorer = filterscore.New(nil, slog.Default())
	}

	validation := scorer.Validate(filters)
	fmt.Printf("Valid:      %v\n", validation.IsValid)
	fmt.Printf("Confidence: %.2f\n", validation.Confidence)
	for _, e := range validation.Errors {
		fmt.Printf("  - %s\n", e)
	}

	if flagOwner != "" {
		historical, err := scorer.ScoreAgainstHistory(ctx, flagOwner, filters)
		if err != nil {
			return err
		}
		fmt.Printf("History:    %.2f\n", historical)

		if flagRecord {
			result := "rejected"
			if validation.IsValid {
				result = "applied"
			}
			if err := scorer.RecordDecision(ctx, flagOwner, filters, validation.Confidence, result); err != nil {
				return err
			}
			fmt.Println("Decision recorded.")
		}
	}
	return nil
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}
