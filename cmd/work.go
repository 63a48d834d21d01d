package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/flanksource/sdg-cache/internal/cache"
	"github.com/flanksource/sdg-cache/models"
)

var workFile string

var workCmd = &cobra.Command{
	Use:   "work",
	Short: "Read or write cached OpenAlex work metadata",
}

var workGetCmd = &cobra.Command{
	Use:   "get <openalex-id>",
	Short: "Print a cached work",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkGet,
}

var workPutCmd = &cobra.Command{
	Use:   "put",
	Short: "Store a work record, replacing any cached copy",
	Long: `Store a work record read from a JSON document of the form

  {"work": {"openalex_id": "W123", "title": "...", ...}, "raw": {...}}

"raw" is the full upstream payload and is optional. Every column of an existing
row is replaced; fields missing from the document become NULL.

Examples:
  sdg-cache work put --file W123.json
  fetch-work W123 | sdg-cache work put`,
	Args: cobra.NoArgs,
	RunE: runWorkPut,
}

func init() {
	workPutCmd.Flags().StringVar(&workFile, "file", "-", "JSON document to read (- for stdin)")
	workCmd.AddCommand(workGetCmd, workPutCmd)
	rootCmd.AddCommand(workCmd)
}

// workDocument is the hand-off format produced by the metadata fetcher
type workDocument struct {
	Work models.Work     `json:"work"`
	Raw  json.RawMessage `json:"raw,omitempty"`
}

func decodeWorkDocument(r io.Reader) (*workDocument, error) {
	var doc workDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse work document: %w", err)
	}
	return &doc, nil
}

// rawValue maps an absent or null raw payload to nil so it is stored as NULL
func rawValue(raw json.RawMessage) interface{} {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func runWorkGet(cmd *cobra.Command, args []string) error {
	store, err := cache.GetStore()
	if err != nil {
		return err
	}

	work, found, err := store.Works().Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("work %s is not cached", args[0])
	}
	return printEntry(cmd.OutOrStdout(), work)
}

func runWorkPut(cmd *cobra.Command, args []string) error {
	in, err := openInput(workFile)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	doc, err := decodeWorkDocument(in)
	if err != nil {
		return err
	}

	store, err := cache.GetStore()
	if err != nil {
		return err
	}

	if err := store.Works().Put(cmd.Context(), doc.Work, rawValue(doc.Raw)); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s cached work %s\n", color.GreenString("✓"), strings.TrimSpace(doc.Work.OpenAlexID))
	return nil
}
