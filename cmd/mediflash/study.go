package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/mediflash/mediflash-api/internal/domain"
	"github.com/mediflash/mediflash-api/internal/domain/srs"
	"github.com/mediflash/mediflash-api/internal/events"
	"github.com/mediflash/mediflash-api/internal/platform/sqlite"
	"github.com/mediflash/mediflash-api/internal/study"
	"github.com/spf13/cobra"
)

func newStudyCmd(opts *rootOptions) *cobra.Command {
	var limits study.Limits

	cmd := &cobra.Command{
		Use:   "study DECK_ID",
		Short: "Study the due cards of a deck",
		Long: `Run an interactive study session on a deck.

Press enter to reveal the answer, then rate your recall:
  1 again   2 hard   3 good   4 easy
Type q at any prompt to end the session.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), cmd, opts)
			if err != nil {
				return err
			}
			defer e.Close()
			return runStudy(cmd.Context(), e, args[0], limits, cmd.InOrStdin())
		},
	}
	cmd.Flags().IntVar(&limits.NewCardsPerDay, "new-per-day", 20, "Daily cap on new cards")
	cmd.Flags().IntVar(&limits.NewCardsPerSession, "new-per-session", 0, "New cards queued per session (0: whatever remains of the daily cap)")
	return cmd
}

func runStudy(ctx context.Context, e *env, rawDeckID string, limits study.Limits, in io.Reader) error {
	if limits.NewCardsPerDay < 0 || limits.NewCardsPerSession < 0 {
		return errors.New("new card limits cannot be negative")
	}

	deck, err := e.ownedDeck(ctx, rawDeckID)
	if err != nil {
		return err
	}

	progress := sqlite.NewProgressStore(e.db, e.logger)
	emitter := events.NewInMemoryEventEmitter(e.logger)
	emitter.Subscribe(events.TypeCardRated, study.NewProgressRecorder(progress, e.logger))

	manager := study.NewManager(e.decks, progress, srs.NewDefaultService(), limits, e.logger,
		study.WithEmitter(emitter))

	view, err := manager.Start(ctx, e.userID, deck.ID)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	t := &terminal{
		manager: manager,
		userID:  e.userID,
		in:      bufio.NewScanner(in),
		out:     e.out,
	}
	fmt.Fprintf(t.out, "Studying %s: %d cards queued, up to %d new.\n", deck.Name, view.QueueLength, view.NewCardCap)
	return t.run(ctx, view)
}

// terminal drives one study session from line-based input.
type terminal struct {
	manager *study.Manager
	userID  uuid.UUID
	in      *bufio.Scanner
	out     io.Writer
}

func (t *terminal) run(ctx context.Context, view study.View) error {
	for !view.Phase.Terminal() {
		t.render(view)

		line, ok := t.readLine()
		if !ok || line == "q" {
			var err error
			view, err = t.manager.Exit(ctx, t.userID, view.SessionID)
			if err != nil {
				return fmt.Errorf("exit session: %w", err)
			}
			break
		}

		next, err := t.apply(ctx, view, line)
		switch {
		case errors.Is(err, study.ErrPersistenceFailure):
			fmt.Fprintf(t.out, "Could not save your rating (%v). Press r to retry or rate again.\n", err)
		case errors.Is(err, errUnknownInput):
			fmt.Fprintln(t.out, "Unrecognised input.")
		case err != nil:
			return err
		}
		view = next
	}

	t.summary(view)
	return nil
}

var errUnknownInput = errors.New("unknown input")

// apply maps one line of input to a session action for the current phase.
func (t *terminal) apply(ctx context.Context, view study.View, line string) (study.View, error) {
	id := view.SessionID

	switch view.Phase {
	case study.PhasePresentingQuestion:
		if line != "" {
			return view, errUnknownInput
		}
		return t.manager.Reveal(ctx, t.userID, id)

	case study.PhasePresentingAnswer:
		if line == "r" && view.PendingRetry {
			return t.manager.Retry(ctx, t.userID, id)
		}
		rating, ok := parseRating(line)
		if !ok {
			return view, errUnknownInput
		}
		return t.manager.Rate(ctx, t.userID, id, rating)

	case study.PhaseLimitReached:
		decision, ok := map[string]study.Decision{
			"c": study.DecisionContinue,
			"r": study.DecisionReviewOnly,
			"e": study.DecisionExit,
		}[line]
		if !ok {
			return view, errUnknownInput
		}
		return t.manager.Decide(ctx, t.userID, id, decision)
	}
	return view, fmt.Errorf("unexpected session phase %q", view.Phase)
}

func (t *terminal) render(view study.View) {
	switch view.Phase {
	case study.PhasePresentingQuestion:
		card := view.Card
		fmt.Fprintf(t.out, "\n[%d/%d]", view.Position+1, view.QueueLength)
		if card.IsNew {
			fmt.Fprint(t.out, " new")
		}
		if card.Chapter != "" {
			fmt.Fprintf(t.out, " · %s", card.Chapter)
		}
		fmt.Fprintf(t.out, "\nQ: %s\n", card.Question)
		fmt.Fprint(t.out, "(enter) reveal  (q) quit > ")

	case study.PhasePresentingAnswer:
		if !view.PendingRetry {
			fmt.Fprintf(t.out, "A: %s\n", view.Card.Answer)
		}
		prompt := "(1) again (2) hard (3) good (4) easy"
		if view.PendingRetry {
			prompt += " (r) retry save"
		}
		fmt.Fprint(t.out, prompt+" (q) quit > ")

	case study.PhaseLimitReached:
		fmt.Fprintf(t.out, "\nDaily new-card limit reached (%d learned).\n", view.Counters.NewLearned)
		fmt.Fprint(t.out, "(c) continue  (r) reviews only  (e) exit > ")
	}
}

func (t *terminal) summary(view study.View) {
	word := "Session complete"
	if view.Phase == study.PhaseExited {
		word = "Session ended"
	}
	fmt.Fprintf(t.out, "\n%s: %d new learned, %d reviewed.\n", word, view.Counters.NewLearned, view.Counters.Reviewed)
}

func (t *terminal) readLine() (string, bool) {
	if !t.in.Scan() {
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(t.in.Text())), true
}

func parseRating(s string) (domain.Rating, bool) {
	switch s {
	case "1", "a", "again":
		return domain.RatingAgain, true
	case "2", "h", "hard":
		return domain.RatingHard, true
	case "3", "g", "good":
		return domain.RatingGood, true
	case "4", "e", "easy":
		return domain.RatingEasy, true
	}
	return 0, false
}
