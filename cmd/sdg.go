package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/flanksource/sdg-cache/internal/cache"
)

var (
	sdgResponseFile string
	sdgFormatted    string
	sdgNote         string
)

var sdgCmd = &cobra.Command{
	Use:   "sdg",
	Short: "Read or write cached SDG classification results",
}

var sdgGetCmd = &cobra.Command{
	Use:   "get <openalex-id> <model>",
	Short: "Print a cached classification",
	Args:  cobra.ExactArgs(2),
	RunE:  runSDGGet,
}

var sdgPutCmd = &cobra.Command{
	Use:   "put <openalex-id> <model>",
	Short: "Store a classification, replacing any cached result for the pair",
	Long: `Store a classification for a work under a model.

Flags that are not given are stored as NULL; --note "" stores an empty note.

Examples:
  sdg-cache sdg put W123 aurora-sdg --response-file response.json --formatted "SDG 3" --note ok`,
	Args: cobra.ExactArgs(2),
	RunE: runSDGPut,
}

func init() {
	sdgPutCmd.Flags().StringVar(&sdgResponseFile, "response-file", "", "JSON response from the classification service (- for stdin)")
	sdgPutCmd.Flags().StringVar(&sdgFormatted, "formatted", "", "Human readable classification")
	sdgPutCmd.Flags().StringVar(&sdgNote, "note", "", "Free text note")
	sdgCmd.AddCommand(sdgGetCmd, sdgPutCmd)
	rootCmd.AddCommand(sdgCmd)
}

// optionalFlag returns nil for a flag the user did not set
func optionalFlag(cmd *cobra.Command, name, value string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return lo.ToPtr(value)
}

func readResponse(path string) (interface{}, error) {
	if path == "" {
		return nil, nil
	}
	in, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = in.Close() }()

	data, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("response in %s is not valid JSON", path)
	}
	return rawValue(data), nil
}

func runSDGGet(cmd *cobra.Command, args []string) error {
	store, err := cache.GetStore()
	if err != nil {
		return err
	}

	result, found, err := store.Classifications().Get(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no classification cached for %s under %s", args[0], args[1])
	}
	return printEntry(cmd.OutOrStdout(), result)
}

func runSDGPut(cmd *cobra.Command, args []string) error {
	response, err := readResponse(sdgResponseFile)
	if err != nil {
		return err
	}

	store, err := cache.GetStore()
	if err != nil {
		return err
	}

	err = store.Classifications().Put(cmd.Context(), args[0], args[1], response,
		optionalFlag(cmd, "formatted", sdgFormatted),
		optionalFlag(cmd, "note", sdgNote))
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s cached classification %s/%s\n", color.GreenString("✓"), args[0], args[1])
	return nil
}
