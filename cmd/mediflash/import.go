package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mediflash/mediflash-api/internal/domain"
	"github.com/spf13/cobra"
)

const (
	inputJSON = "json"
	inputCSV  = "csv"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "import DECK_ID [FILE]",
		Short: "Append cards to a deck from JSON or CSV",
		Long: `Append cards to a deck from FILE, or stdin when FILE is omitted or "-".

JSON input is an array of cards (or an object with a "cards" array):
  [{"question": "...", "answer": "...", "kind": "qa", "tags": ["..."]}]

CSV input needs a header row naming its columns. question and answer are
required; kind, tags (separated by ";"), chapter and media are optional.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 2 {
				path = args[1]
			}

			data, err := readInput(cmd.InOrStdin(), path)
			if err != nil {
				return err
			}

			format := input
			if format == "" {
				format = detectInputFormat(path)
			}
			drafts, err := parseDrafts(data, format)
			if err != nil {
				return err
			}

			e, err := openEnv(cmd.Context(), cmd, opts)
			if err != nil {
				return err
			}
			defer e.Close()
			return runImport(cmd.Context(), e, args[0], drafts)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Input format: json or csv (default: from the file extension, else json)")
	return cmd
}

func runImport(ctx context.Context, e *env, rawDeckID string, drafts []domain.CardDraft) error {
	deck, err := e.ownedDeck(ctx, rawDeckID)
	if err != nil {
		return err
	}

	cards, err := e.decks.AddCards(ctx, deck.ID, drafts, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("import cards: %w", err)
	}

	if e.format == formatJSON {
		return e.printJSON(map[string]any{"ok": true, "deck_id": deck.ID, "imported": len(cards)})
	}
	_, err = fmt.Fprintf(e.out, "imported %d cards into %s\n", len(cards), deck.Name)
	return err
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func detectInputFormat(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return inputCSV
	}
	return inputJSON
}

// parseDrafts decodes card drafts in the given format. Drafts without a kind
// are question/answer cards.
func parseDrafts(data []byte, format string) ([]domain.CardDraft, error) {
	var (
		drafts []domain.CardDraft
		err    error
	)
	switch format {
	case inputJSON:
		drafts, err = parseJSONDrafts(data)
	case inputCSV:
		drafts, err = parseCSVDrafts(data)
	default:
		return nil, fmt.Errorf("unknown input format %q (want json or csv)", format)
	}
	if err != nil {
		return nil, err
	}
	if len(drafts) == 0 {
		return nil, errors.New("no cards to import")
	}

	for i := range drafts {
		if drafts[i].Kind == "" {
			drafts[i].Kind = domain.CardKindQA
		}
	}
	return drafts, nil
}

func parseJSONDrafts(data []byte) ([]domain.CardDraft, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var wrapped struct {
			Cards []domain.CardDraft `json:"cards"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		return wrapped.Cards, nil
	}

	var drafts []domain.CardDraft
	if err := json.Unmarshal(data, &drafts); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return drafts, nil
}

func parseCSVDrafts(data []byte) ([]domain.CardDraft, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	columns := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"question", "answer"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("parse csv: header has no %q column", required)
		}
	}

	field := func(record []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	drafts := make([]domain.CardDraft, 0, len(records)-1)
	for _, record := range records[1:] {
		draft := domain.CardDraft{
			Kind:     domain.CardKind(field(record, "kind")),
			Question: field(record, "question"),
			Answer:   field(record, "answer"),
			Chapter:  field(record, "chapter"),
			Media:    field(record, "media"),
		}
		for _, tag := range strings.Split(field(record, "tags"), ";") {
			if tag = strings.TrimSpace(tag); tag != "" {
				draft.Tags = append(draft.Tags, tag)
			}
		}
		drafts = append(drafts, draft)
	}
	return drafts, nil
}
