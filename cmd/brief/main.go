// Command brief runs the title→record→summary pipeline once from the
// terminal: resolve a book, print its details and AI summary, optionally
// speak it.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ujjwal16295/book-ai/internal/catalog"
	"github.com/ujjwal16295/book-ai/internal/config"
	"github.com/ujjwal16295/book-ai/internal/logging"
	"github.com/ujjwal16295/book-ai/internal/speech"
	"github.com/ujjwal16295/book-ai/internal/summarize"
)

var (
	flagSuggest bool
	flagSpeak   bool
)

func main() {
	root := &cobra.Command{
		Use:   "brief <title>",
		Short: "Fetch a book's details and a ~100-word AI summary",
		Args:  cobra.MinimumNArgs(1),
		RunE:  run,
	}
	root.Flags().BoolVar(&flagSuggest, "suggest", false, "list matching titles instead of briefing the best match")
	root.Flags().BoolVar(&flagSpeak, "speak", false, "read the summary aloud through the speech engine")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logging.Init(cfg.Debug)
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		return errors.New("no title provided")
	}

	client := catalog.NewClient(cfg.GoogleBooksAPIKey, cfg.SuggestMaxResults)
	if cfg.CatalogCachePath != "" {
		if cache, err := catalog.NewCache(cfg.CatalogCachePath, 24*time.Hour); err == nil {
			defer cache.Close()
			client = client.WithCache(cache)
		}
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()

	if flagSuggest {
		candidates, err := client.Suggest(ctx, title)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			fmt.Println("No matches.")
			return nil
		}
		for _, c := range candidates {
			fmt.Printf("%s — %s\n", c.Title, c.Authors)
		}
		return nil
	}

	rec, err := client.Lookup(ctx, title)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return fmt.Errorf("book not found; try a more exact title")
		}
		return err
	}

	fmt.Printf("%s\nby %s\n", rec.Title, rec.Authors)
	fmt.Printf("Published: %s  Pages: %s  Categories: %s\n", rec.PublishedDate, rec.PageCount, rec.Categories)
	if rec.AverageRating != nil {
		fmt.Printf("Rating: %.1f (%d ratings)\n", *rec.AverageRating, rec.RatingsCount)
	}

	gen := summarize.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModelID)
	res := summarize.Summarize(ctx, gen, rec.Title, rec.Authors)
	fmt.Printf("\n%s\n", res.Text)
	if !res.Generated() {
		logging.Warn("summary is a fallback", "kind", res.Kind.String())
	}

	if flagSpeak && res.Generated() {
		if cfg.DeepgramAPIKey == "" {
			return errors.New("DEEPGRAM_API_KEY not set; cannot speak")
		}
		engine := speech.NewDeepgramEngine(cfg.DeepgramAPIKey, cfg.DeepgramVoice, speech.DiscardSink{})
		if err := engine.Speak(ctx, res.Text, ""); err != nil {
			logging.Warn("playback failed", "err", err)
		}
	}
	return nil
}
