// Copyright 2025 Corvus Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	corvus "github.com/corvus-ai/corvus"
	"github.com/corvus-ai/corvus/ai"
	"github.com/corvus-ai/corvus/chat"
	"github.com/corvus-ai/corvus/core"
	"github.com/corvus-ai/corvus/graph/neo4jgraph"
	"github.com/corvus-ai/corvus/ingestion"
	"github.com/corvus-ai/corvus/reindex"
	"github.com/corvus-ai/corvus/retrieval"
)

func main() {
	app := &cli.App{
		Name:  "corvus",
		Usage: "Knowledge base system with hybrid retrieval and grounded chat",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to the data directory",
				Value:   "corvus-data",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "OpenAI-compatible service host URL",
				Value: "http://localhost:11434/v1",
			},
			&cli.StringFlag{
				Name:  "api-key",
				Usage: "API key for the AI service",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name",
			},
			&cli.StringFlag{
				Name:  "extraction-model",
				Usage: "Entity extraction model name",
			},
			&cli.StringFlag{
				Name:  "chat-model",
				Usage: "Chat completion model name",
			},
			&cli.StringFlag{
				Name:  "neo4j-uri",
				Usage: "Neo4j server URI; graph storage stays in-process when omitted",
			},
			&cli.StringFlag{
				Name:  "neo4j-user",
				Usage: "Neo4j user name",
				Value: "neo4j",
			},
			&cli.StringFlag{
				Name:  "neo4j-password",
				Usage: "Neo4j password",
			},
			&cli.StringFlag{
				Name:  "neo4j-database",
				Usage: "Neo4j database name",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "create-kb",
				Usage:  "Create a knowledge base",
				Action: createKBCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Aliases:  []string{"n"},
						Usage:    "Knowledge base name",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "description",
						Usage: "Knowledge base description",
					},
					&cli.BoolFlag{
						Name:  "vector",
						Usage: "Enable vector search",
						Value: true,
					},
					&cli.BoolFlag{
						Name:  "graph",
						Usage: "Enable graph storage",
						Value: true,
					},
					&cli.BoolFlag{
						Name:  "extraction",
						Usage: "Enable entity extraction",
						Value: true,
					},
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Default chunk size in characters",
					},
					&cli.IntFlag{
						Name:  "chunk-overlap",
						Usage: "Default chunk overlap in characters",
					},
				},
			},
			{
				Name:   "ingest",
				Usage:  "Ingest a document from a file or stdin",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:     "kb",
						Usage:    "Knowledge base ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Path to the document file (reads stdin when omitted)",
					},
					&cli.StringFlag{
						Name:  "title",
						Usage: "Document title",
					},
					&cli.BoolFlag{
						Name:  "wait",
						Usage: "Block until processing finishes",
						Value: true,
					},
				},
			},
			{
				Name:   "status",
				Usage:  "Show processing status of a document",
				Action: statusCommand,
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:     "doc",
						Usage:    "Document ID",
						Required: true,
					},
				},
			},
			{
				Name:   "search",
				Usage:  "Search a knowledge base",
				Action: searchCommand,
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:     "kb",
						Usage:    "Knowledge base ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "query",
						Aliases:  []string{"q"},
						Usage:    "Search query",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Maximum number of results",
						Value: retrieval.DefaultTopK,
					},
					&cli.BoolFlag{
						Name:  "vector",
						Usage: "Use vector search",
						Value: true,
					},
					&cli.BoolFlag{
						Name:  "graph",
						Usage: "Use graph search",
						Value: true,
					},
				},
			},
			{
				Name:   "chat",
				Usage:  "Chat against a knowledge base (interactive)",
				Action: chatCommand,
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:     "kb",
						Usage:    "Knowledge base ID",
						Required: true,
					},
					&cli.Uint64Flag{
						Name:  "session",
						Usage: "Resume an existing session ID",
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Retrieval depth per turn",
						Value: retrieval.DefaultTopK,
					},
				},
			},
			{
				Name:   "reindex",
				Usage:  "Rebuild a knowledge base's vector index",
				Action: reindexCommand,
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:     "kb",
						Usage:    "Knowledge base ID",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to embed in each batch",
						Value: reindex.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: reindex.DefaultReportInterval,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed embedding batches",
						Value: reindex.DefaultMaxRetries,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// openEngine assembles the engine from global flags.
func openEngine(c *cli.Context) (*corvus.Engine, error) {
	var configOpts []ai.ConfigOption
	configOpts = append(configOpts, ai.WithHost(c.String("host")))
	if v := c.String("api-key"); v != "" {
		configOpts = append(configOpts, ai.WithAPIKey(v))
	}
	if v := c.String("embedding-model"); v != "" {
		configOpts = append(configOpts, ai.WithEmbeddingModel(v))
	}
	if v := c.String("extraction-model"); v != "" {
		configOpts = append(configOpts, ai.WithExtractionModel(v))
	}
	if v := c.String("chat-model"); v != "" {
		configOpts = append(configOpts, ai.WithChatModel(v))
	}

	cfg := ai.NewConfig(configOpts...)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	opts := []corvus.Option{corvus.WithAIConfig(cfg)}
	if uri := c.String("neo4j-uri"); uri != "" {
		opts = append(opts, corvus.WithNeo4j(neo4jgraph.Config{
			URI:      uri,
			User:     c.String("neo4j-user"),
			Password: c.String("neo4j-password"),
			Database: c.String("neo4j-database"),
		}))
	}
	return corvus.Open(c.String("db"), opts...)
}

func createKBCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	kb, err := engine.Stores().KnowledgeBases.AddKnowledgeBase(context.Background(), &core.KnowledgeBase{
		Name:                c.String("name"),
		Description:         c.String("description"),
		EnableVectorStore:   c.Bool("vector"),
		EnableGraphStore:    c.Bool("graph"),
		EnableExtraction:    c.Bool("extraction"),
		DefaultChunkSize:    c.Int("chunk-size"),
		DefaultChunkOverlap: c.Int("chunk-overlap"),
		EmbeddingModel:      c.String("embedding-model"),
	})
	if err != nil {
		return fmt.Errorf("failed to create knowledge base: %w", err)
	}

	fmt.Printf("Created knowledge base %d (%s)\n", kb.Id, kb.Name)
	return nil
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	content, source, err := readInput(c.String("file"))
	if err != nil {
		return err
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	doc, err := engine.Stores().Documents.AddDocument(ctx, &core.Document{
		KnowledgeBaseId: core.ID(c.Uint64("kb")),
		Title:           c.String("title"),
		Content:         content,
		Source:          source,
	})
	if err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}

	res, err := engine.Pipeline().Submit(ctx, doc.Id)
	if err != nil {
		return fmt.Errorf("failed to submit document: %w", err)
	}
	if !res.Accepted {
		return fmt.Errorf("document %d is already being processed (%s)", doc.Id, res.Status)
	}
	fmt.Printf("Document %d submitted\n", doc.Id)

	if !c.Bool("wait") {
		return nil
	}
	return pollStatus(ctx, engine.Pipeline(), doc.Id)
}

// pollStatus prints pipeline progress until the document settles.
func pollStatus(ctx context.Context, pipeline *ingestion.Pipeline, docID core.ID) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		st, err := pipeline.Status(ctx, docID)
		if err != nil {
			return err
		}

		switch st.Status {
		case core.DocumentStatusCompleted:
			fmt.Printf("Completed: %d chunks, %d entities, %d relations\n",
				st.ChunkCount, st.EntityCount, st.RelationCount)
			return nil
		case core.DocumentStatusFailed:
			return fmt.Errorf("processing failed: %s", st.Error)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func statusCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	st, err := engine.Pipeline().Status(context.Background(), core.ID(c.Uint64("doc")))
	if err != nil {
		return err
	}

	fmt.Printf("Status: %s\n", st.Status)
	if st.InQueue {
		fmt.Println("Position: queued")
	}
	if st.Running {
		fmt.Println("Position: running")
	}
	if st.Status == core.DocumentStatusCompleted {
		fmt.Printf("Chunks: %d\nEntities: %d\nRelations: %d\n",
			st.ChunkCount, st.EntityCount, st.RelationCount)
	}
	if st.Error != "" {
		fmt.Printf("Error: %s\n", st.Error)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	result, err := engine.Retriever().Search(context.Background(),
		core.ID(c.Uint64("kb")), c.String("query"), retrieval.Options{
			TopK:      c.Int("top-k"),
			UseVector: c.Bool("vector"),
			UseGraph:  c.Bool("graph"),
		})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(result.Chunks) == 0 && len(result.Entities) == 0 {
		fmt.Println("No results")
		return nil
	}

	for i, chunk := range result.Chunks {
		fmt.Printf("%d. [%.3f %s] doc %d chunk %d\n%s\n\n",
			i+1, chunk.Score, chunk.Source, chunk.DocumentId, chunk.Index,
			strings.TrimSpace(chunk.Content))
	}
	for _, ent := range result.Entities {
		fmt.Printf("Entity: %s (%s) relevance %.2f\n", ent.Name, ent.Type, ent.Relevance)
		for _, rel := range ent.Related {
			fmt.Printf("  - %s (%s)\n", rel.Name, rel.Relation)
		}
	}
	return nil
}

func chatCommand(c *cli.Context) error {
	ctx := context.Background()

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	session, err := resolveSession(ctx, engine, c)
	if err != nil {
		return err
	}
	fmt.Printf("Session %d — type a message, or \"exit\" to quit\n", session.Id)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		_, err := engine.Assembler().Turn(ctx, session.Id, line, &consoleSink{out: os.Stdout})
		fmt.Println()
		if err != nil {
			fmt.Fprintf(os.Stderr, "turn failed: %v\n", err)
		}
	}
	return scanner.Err()
}

func resolveSession(ctx context.Context, engine *corvus.Engine, c *cli.Context) (*core.ChatSession, error) {
	if id := c.Uint64("session"); id != 0 {
		return engine.Stores().Chats.GetSession(ctx, core.ID(id))
	}
	return engine.Stores().Chats.AddSession(ctx, &core.ChatSession{
		KnowledgeBaseId: core.ID(c.Uint64("kb")),
		Title:           "cli session",
		UseVectorSearch: true,
		UseGraphSearch:  true,
		SearchTopK:      c.Int("top-k"),
	})
}

// consoleSink streams reply deltas to the terminal.
type consoleSink struct {
	out io.Writer
}

func (s *consoleSink) Send(e chat.Event) error {
	switch e.Type {
	case chat.EventContext:
		fmt.Fprintf(s.out, "[context: %d chunks, %d entities]\n", e.Chunks, e.Entities)
	case chat.EventDelta:
		fmt.Fprint(s.out, e.Delta)
	case chat.EventError:
		fmt.Fprintf(s.out, "\n[stream error: %v]", e.Err)
	}
	return nil
}

func reindexCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	progress := func(done, total int) {
		fmt.Fprintf(os.Stderr, "\rProgress: %d/%d", done, total)
	}

	reindexer, err := engine.NewReindexer(
		reindex.WithBatchSize(c.Int("batch-size")),
		reindex.WithReportInterval(c.Int("report-interval")),
		reindex.WithMaxRetries(c.Int("max-retries")),
		reindex.WithRetryDelay(c.Duration("retry-delay")),
		reindex.WithProgress(progress),
	)
	if err != nil {
		return err
	}

	summary, err := reindexer.Run(context.Background(), core.ID(c.Uint64("kb")))
	if err != nil {
		return fmt.Errorf("reindexing failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "\nReindexed %d chunks in %d batches (%v)\n",
		summary.Chunks, summary.Batches, summary.Elapsed.Round(time.Millisecond))
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// readInput loads document content from a file, or stdin when path is empty
// or "-".
func readInput(path string) (content, source string, err error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), "stdin", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), path, nil
}
