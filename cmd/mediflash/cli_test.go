package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/mediflash/mediflash-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliFixture struct {
	t      *testing.T
	dbPath string
	user   string
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	return &cliFixture{
		t:      t,
		dbPath: filepath.Join(t.TempDir(), "cli.db"),
		user:   uuid.NewString(),
	}
}

// run executes the CLI with args and stdin and returns stdout.
func (f *cliFixture) run(stdin string, args ...string) (string, error) {
	f.t.Helper()

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--db", f.dbPath, "--user", f.user}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func (f *cliFixture) createDeck(name string) domain.Deck {
	f.t.Helper()

	out, err := f.run("", "--format", "json", "decks", "create", name)
	require.NoError(f.t, err)

	var deck domain.Deck
	require.NoError(f.t, json.Unmarshal([]byte(out), &deck))
	return deck
}

func TestDecksCreateAndList(t *testing.T) {
	t.Parallel()
	f := newCLIFixture(t)

	out, err := f.run("", "decks", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "no decks yet")

	deck := f.createDeck("Pharmacology basics")
	assert.Equal(t, "Pharmacology basics", deck.Name)
	assert.Equal(t, domain.DeckSourceManual, deck.Source)

	out, err = f.run("", "decks", "list")
	require.NoError(t, err)
	assert.Contains(t, out, deck.ID.String())
	assert.Contains(t, out, "Pharmacology basics")

	other := &cliFixture{t: t, dbPath: f.dbPath, user: uuid.NewString()}
	out, err = other.run("", "--format", "json", "decks", "list")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestDecksCreate_InvalidSource(t *testing.T) {
	t.Parallel()
	f := newCLIFixture(t)

	_, err := f.run("", "decks", "create", "Anatomy", "--source", "scraped")
	assert.Error(t, err)
}

func TestImportAndListCards(t *testing.T) {
	t.Parallel()
	f := newCLIFixture(t)
	deck := f.createDeck("Microbiology")

	csvInput := "question,answer,tags\n" +
		"Gram stain of S. aureus?,Positive,bacteria;gram\n" +
		"Shape of E. coli?,Rod,bacteria\n"
	out, err := f.run(csvInput, "import", deck.ID.String(), "--input", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 cards into Microbiology")

	jsonInput := `{"cards": [{"kind": "cloze", "question": "{{c1::Penicillin}} inhibits cell wall synthesis.", "answer": "Penicillin"}]}`
	out, err = f.run(jsonInput, "--format", "json", "import", deck.ID.String())
	require.NoError(t, err)
	assert.Contains(t, out, `"imported": 1`)

	out, err = f.run("", "--format", "json", "decks", "cards", deck.ID.String())
	require.NoError(t, err)

	var cards []domain.Card
	require.NoError(t, json.Unmarshal([]byte(out), &cards))
	require.Len(t, cards, 3)
	assert.Equal(t, "Gram stain of S. aureus?", cards[0].Question)
	assert.Equal(t, []string{"bacteria", "gram"}, cards[0].Tags)
	assert.Equal(t, domain.CardKindQA, cards[1].Kind)
	assert.Equal(t, domain.CardKindCloze, cards[2].Kind)
	for _, c := range cards {
		assert.True(t, c.Memory.IsNew)
	}
}

func TestImport_UnknownDeck(t *testing.T) {
	t.Parallel()
	f := newCLIFixture(t)

	_, err := f.run(`[{"question": "q", "answer": "a"}]`, "import", uuid.NewString())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestImport_OtherUsersDeck(t *testing.T) {
	t.Parallel()
	f := newCLIFixture(t)
	deck := f.createDeck("Private")

	other := &cliFixture{t: t, dbPath: f.dbPath, user: uuid.NewString()}
	_, err := other.run(`[{"question": "q", "answer": "a"}]`, "import", deck.ID.String())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestStudySession(t *testing.T) {
	t.Parallel()
	f := newCLIFixture(t)
	deck := f.createDeck("Cardiology")

	_, err := f.run(`[
		{"question": "First-line drug for stable angina?", "answer": "Beta blocker"},
		{"question": "Normal QRS duration?", "answer": "Under 120 ms"}
	]`, "import", deck.ID.String())
	require.NoError(t, err)

	// reveal + good, then an unrecognised rating, then reveal + easy
	out, err := f.run("\n3\n\nx\n4\n", "study", deck.ID.String())
	require.NoError(t, err)
	assert.Contains(t, out, "Studying Cardiology: 2 cards queued")
	assert.Contains(t, out, "A: Beta blocker")
	assert.Contains(t, out, "Unrecognised input.")
	assert.Contains(t, out, "Session complete: 2 new learned, 0 reviewed.")

	// everything is scheduled for later now
	out, err = f.run("", "study", deck.ID.String())
	require.NoError(t, err)
	assert.Contains(t, out, "0 cards queued")
	assert.Contains(t, out, "Session complete: 0 new learned, 0 reviewed.")
}

func TestStudySession_NewCardLimit(t *testing.T) {
	t.Parallel()
	f := newCLIFixture(t)
	deck := f.createDeck("Neurology")

	_, err := f.run(`[
		{"question": "Q1", "answer": "A1"},
		{"question": "Q2", "answer": "A2"},
		{"question": "Q3", "answer": "A3"}
	]`, "import", deck.ID.String())
	require.NoError(t, err)

	out, err := f.run("\n3\ne\n", "study", deck.ID.String(), "--new-per-day", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Daily new-card limit reached (1 learned).")
	assert.Contains(t, out, "Session ended: 1 new learned, 0 reviewed.")

	// the daily cap is used up for today
	out, err = f.run("", "study", deck.ID.String(), "--new-per-day", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "up to 0 new")
}

func TestStudySession_QuitOnEOF(t *testing.T) {
	t.Parallel()
	f := newCLIFixture(t)
	deck := f.createDeck("Renal")

	_, err := f.run(`[{"question": "Q", "answer": "A"}]`, "import", deck.ID.String())
	require.NoError(t, err)

	out, err := f.run("", "study", deck.ID.String())
	require.NoError(t, err)
	assert.Contains(t, out, "Session ended: 0 new learned, 0 reviewed.")
}

func TestRootFlags_Validation(t *testing.T) {
	t.Parallel()
	f := newCLIFixture(t)

	_, err := f.run("", "--format", "yaml", "decks", "list")
	assert.Error(t, err)

	_, err = f.run("", "--log-level", "loud", "decks", "list")
	assert.Error(t, err)

	bad := &cliFixture{t: t, dbPath: f.dbPath, user: "not-a-uuid"}
	_, err = bad.run("", "decks", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid user id")
}

func TestParseDrafts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		format  string
		want    []domain.CardDraft
		wantErr string
	}{
		{
			name:   "json array defaults kind",
			data:   `[{"question": "Q", "answer": "A"}]`,
			format: inputJSON,
			want:   []domain.CardDraft{{Kind: domain.CardKindQA, Question: "Q", Answer: "A"}},
		},
		{
			name:   "csv with optional columns",
			data:   "Answer,Question,Chapter,Kind\nA,Q,Ch 1,cloze\n",
			format: inputCSV,
			want: []domain.CardDraft{
				{Kind: domain.CardKindCloze, Question: "Q", Answer: "A", Chapter: "Ch 1"},
			},
		},
		{
			name:    "csv without answer column",
			data:    "question\nQ\n",
			format:  inputCSV,
			wantErr: `no "answer" column`,
		},
		{
			name:    "empty json array",
			data:    `[]`,
			format:  inputJSON,
			wantErr: "no cards to import",
		},
		{
			name:    "malformed json",
			data:    `[{`,
			format:  inputJSON,
			wantErr: "parse json",
		},
		{
			name:    "unknown format",
			data:    `[]`,
			format:  "xml",
			wantErr: "unknown input format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseDrafts([]byte(tt.data), tt.format)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectInputFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, inputCSV, detectInputFormat("cards.CSV"))
	assert.Equal(t, inputJSON, detectInputFormat("cards.json"))
	assert.Equal(t, inputJSON, detectInputFormat("-"))
}

func TestParseRating(t *testing.T) {
	t.Parallel()

	for input, want := range map[string]domain.Rating{
		"1": domain.RatingAgain, "again": domain.RatingAgain,
		"2": domain.RatingHard, "h": domain.RatingHard,
		"3": domain.RatingGood, "g": domain.RatingGood,
		"4": domain.RatingEasy, "easy": domain.RatingEasy,
	} {
		got, ok := parseRating(input)
		assert.True(t, ok, input)
		assert.Equal(t, want, got, input)
	}

	_, ok := parseRating("5")
	assert.False(t, ok)
}
