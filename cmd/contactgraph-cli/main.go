// contactgraph-cli is a headless inspection tool for the contact graph
// engine: it loads a contact book from a JSON file or Redis, derives the
// relationship graph, and runs merge and enrichment operations against the
// live store.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/go-redis/redis/v8"

	"github.com/tagus/contactgraph/pkg/config"
	"github.com/tagus/contactgraph/pkg/enrich"
	"github.com/tagus/contactgraph/pkg/entitystore"
	"github.com/tagus/contactgraph/pkg/graph"
	"github.com/tagus/contactgraph/pkg/interfaces"
	"github.com/tagus/contactgraph/pkg/llm/openai"
	"github.com/tagus/contactgraph/pkg/logging"
	"github.com/tagus/contactgraph/pkg/merge"
	"github.com/tagus/contactgraph/pkg/retry"
)

var logger = logging.New()

const usage = `contactgraph-cli <command> [flags]

Commands:
  list                     print every entity in the store
  edges                    derive and print the relationship graph
  merge -survivor <id> <id>...   consolidate profiles into the survivor
  enrich -id <id> [-text <evidence>] [-url <page>]   enrich one entity

Flags:
  -book <file>   JSON contact book to load (default: contacts.json)
  -redis         load/flush the store through Redis instead of a file
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	command := os.Args[1]
	flags := flag.NewFlagSet(command, flag.ExitOnError)
	bookPath := flags.String("book", "contacts.json", "JSON contact book")
	useRedis := flags.Bool("redis", false, "use the Redis-backed store")
	survivorID := flags.String("survivor", "", "surviving entity id for merge")
	entityID := flags.String("id", "", "target entity id for enrich")
	evidenceText := flags.String("text", "", "manual evidence text")
	evidenceURL := flags.String("url", "", "evidence page URL")
	if err := flags.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}

	ctx := context.Background()
	cfg := config.LoadFromEnv()

	var redisStore *entitystore.RedisStore
	if *useRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.Redis.URL,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		redisStore = entitystore.NewRedisStore(client, entitystore.WithTTL(cfg.Store.Redis.TTL))
	}

	store, err := loadStore(ctx, *bookPath, redisStore)
	if err != nil {
		fatal("failed to load contact book", err)
	}

	switch command {
	case "list":
		runList(store)
	case "edges":
		runEdges(store)
	case "merge":
		runMerge(ctx, cfg, store, *survivorID, flags.Args())
		persist(ctx, store, *bookPath, redisStore)
	case "enrich":
		runEnrich(ctx, cfg, store, *entityID, *evidenceText, *evidenceURL)
		persist(ctx, store, *bookPath, redisStore)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func newOracle(cfg *config.Config) *openai.OpenAIClient {
	opts := []openai.Option{
		openai.WithModel(cfg.Oracle.OpenAI.Model),
		openai.WithTemperature(cfg.Oracle.OpenAI.Temperature),
		openai.WithTimeout(cfg.Oracle.OpenAI.Timeout),
		openai.WithLogger(logger),
	}
	if cfg.Oracle.OpenAI.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.Oracle.OpenAI.BaseURL))
	}
	if cfg.Oracle.Retry.Enabled {
		opts = append(opts, openai.WithRetry(
			retry.WithMaximumAttempts(int32(cfg.Oracle.Retry.MaxAttempts)),
		))
	}
	return openai.NewClient(cfg.Oracle.OpenAI.APIKey, opts...)
}

func loadStore(ctx context.Context, bookPath string, redisStore *entitystore.RedisStore) (*entitystore.Store, error) {
	if redisStore != nil {
		return redisStore.Load(ctx)
	}

	store := entitystore.New()
	file, err := os.Open(bookPath)
	if os.IsNotExist(err) {
		return store, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	var entities []interfaces.ContactEntity
	if err := json.Unmarshal(data, &entities); err != nil {
		return nil, err
	}
	for _, entity := range entities {
		if err := store.Add(entity); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func persist(ctx context.Context, store *entitystore.Store, bookPath string, redisStore *entitystore.RedisStore) {
	if redisStore != nil {
		if err := redisStore.Flush(ctx, store); err != nil {
			fatal("failed to flush store to redis", err)
		}
		return
	}

	data, err := json.MarshalIndent(store.List(), "", "  ")
	if err != nil {
		fatal("failed to serialize contact book", err)
	}
	if err := os.WriteFile(bookPath, data, 0o644); err != nil {
		fatal("failed to write contact book", err)
	}
}

func runList(store *entitystore.Store) {
	for _, entity := range store.List() {
		fmt.Printf("%s  %-20s %s", entity.ID, entity.Name, entity.Organization)
		if len(entity.Tags) > 0 {
			fmt.Printf("  %v", entity.Tags)
		}
		fmt.Println()
	}
}

func runEdges(store *entitystore.Store) {
	edges := graph.DeriveEdges(store.List())
	for _, edge := range edges {
		fmt.Printf("%s -> %s  weight=%d  %s\n", edge.SourceID, edge.TargetID, edge.Weight, edge.Label)
	}
	fmt.Printf("%d edge(s)\n", len(edges))
}

func runMerge(ctx context.Context, cfg *config.Config, store *entitystore.Store, survivorID string, ids []string) {
	if survivorID == "" || len(ids) == 0 {
		fatal("merge requires -survivor and at least one further id", nil)
	}

	allIDs := append([]string{survivorID}, ids...)
	profiles := make([]interfaces.ContactEntity, 0, len(allIDs))
	for _, id := range allIDs {
		entity, err := store.Get(id)
		if err != nil {
			fatal("unknown entity", err)
		}
		profiles = append(profiles, entity)
	}

	merger := merge.New(newOracle(cfg), merge.WithLogger(logger))
	result, err := merger.MergeProfiles(ctx, profiles, survivorID)
	if err != nil {
		fatal("merge failed", err)
	}
	if !result.Applied {
		fmt.Printf("merge not applied: %s\n", result.Reason)
		return
	}

	if err := store.ApplyMerge(result.Entity, ids); err != nil {
		fatal("failed to apply merge", err)
	}
	fmt.Printf("merged %d profiles into %s\n", len(profiles), survivorID)
}

func runEnrich(ctx context.Context, cfg *config.Config, store *entitystore.Store, id, text, url string) {
	if id == "" {
		fatal("enrich requires -id", nil)
	}
	manual := text
	if url != "" {
		if manual != "" {
			manual += "\n"
		}
		manual += url
	}

	enricher := enrich.New(store, newOracle(cfg), enrich.WithLogger(logger))
	outcome, err := enricher.EnrichAndApply(ctx, id, interfaces.EvidenceBundle{ManualText: manual})
	if err != nil {
		fatal("enrichment failed", err)
	}

	fmt.Printf("updated %s (%s)\n", outcome.Updated.ID, outcome.Updated.Name)
	for _, stub := range outcome.Discovered {
		fmt.Printf("discovered %s (%s)\n", stub.ID, stub.Name)
	}
}

func fatal(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	} else {
		fmt.Fprintln(os.Stderr, msg)
	}
	os.Exit(1)
}
