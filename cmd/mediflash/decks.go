package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/mediflash/mediflash-api/internal/domain"
	"github.com/mediflash/mediflash-api/internal/store"
	"github.com/spf13/cobra"
)

func newDecksCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decks",
		Short: "Manage flashcard decks",
	}

	var source string
	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an empty deck",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), cmd, opts)
			if err != nil {
				return err
			}
			defer e.Close()
			return runCreateDeck(cmd.Context(), e, strings.Join(args, " "), domain.DeckSource(source))
		},
	}
	create.Flags().StringVarP(&source, "source", "s", string(domain.DeckSourceManual), "Deck source: manual, system or doc")

	list := &cobra.Command{
		Use:   "list",
		Short: "List your decks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), cmd, opts)
			if err != nil {
				return err
			}
			defer e.Close()
			return runListDecks(cmd.Context(), e)
		},
	}

	cards := &cobra.Command{
		Use:   "cards DECK_ID",
		Short: "Show the cards of a deck with their schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), cmd, opts)
			if err != nil {
				return err
			}
			defer e.Close()
			return runListCards(cmd.Context(), e, args[0])
		},
	}

	del := &cobra.Command{
		Use:   "delete DECK_ID",
		Short: "Delete a deck and all of its cards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), cmd, opts)
			if err != nil {
				return err
			}
			defer e.Close()
			return runDeleteDeck(cmd.Context(), e, args[0])
		},
	}

	cmd.AddCommand(create, list, cards, del)
	return cmd
}

func runCreateDeck(ctx context.Context, e *env, name string, source domain.DeckSource) error {
	deck, err := domain.NewDeck(e.userID, name, source)
	if err != nil {
		return fmt.Errorf("invalid deck: %w", err)
	}
	if err := e.decks.CreateDeck(ctx, deck); err != nil {
		return fmt.Errorf("create deck: %w", err)
	}

	if e.format == formatJSON {
		return e.printJSON(deck)
	}
	_, err = fmt.Fprintf(e.out, "created deck %s (%s)\n", deck.ID, deck.Name)
	return err
}

func runListDecks(ctx context.Context, e *env) error {
	decks, err := e.decks.ListDecks(ctx, e.userID)
	if err != nil {
		return fmt.Errorf("list decks: %w", err)
	}

	if e.format == formatJSON {
		if decks == nil {
			decks = []*domain.Deck{}
		}
		return e.printJSON(decks)
	}

	if len(decks) == 0 {
		_, err := fmt.Fprintln(e.out, "no decks yet, create one with: mediflash decks create NAME")
		return err
	}

	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSOURCE\tCREATED")
	for _, d := range decks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ID, d.Name, d.Source, d.CreatedAt.Format(domain.DayLayout))
	}
	return tw.Flush()
}

func runListCards(ctx context.Context, e *env, rawID string) error {
	deck, err := e.ownedDeck(ctx, rawID)
	if err != nil {
		return err
	}

	cards, err := e.decks.GetCards(ctx, deck.ID)
	if err != nil {
		return fmt.Errorf("load cards: %w", err)
	}

	if e.format == formatJSON {
		if cards == nil {
			cards = []*domain.Card{}
		}
		return e.printJSON(cards)
	}

	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tQUESTION\tSTATE\tDUE")
	for _, c := range cards {
		state := "new"
		if !c.Memory.IsNew {
			state = fmt.Sprintf("%dd ease %.2f", c.Memory.IntervalDays, c.Memory.Ease)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", c.Position, truncate(c.Question, 60), state, c.Memory.DueAt.Format(domain.DayLayout))
	}
	return tw.Flush()
}

func runDeleteDeck(ctx context.Context, e *env, rawID string) error {
	deck, err := e.ownedDeck(ctx, rawID)
	if err != nil {
		return err
	}
	if err := e.decks.DeleteDeck(ctx, deck.ID); err != nil {
		return fmt.Errorf("delete deck: %w", err)
	}
	_, err = fmt.Fprintf(e.out, "deleted deck %s\n", deck.ID)
	return err
}

// ownedDeck loads the deck named by rawID and checks that the acting user owns it.
func (e *env) ownedDeck(ctx context.Context, rawID string) (*domain.Deck, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid deck id %q", rawID)
	}

	deck, err := e.decks.GetDeck(ctx, id)
	if errors.Is(err, store.ErrDeckNotFound) || (err == nil && deck.UserID != e.userID) {
		return nil, fmt.Errorf("deck %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load deck: %w", err)
	}
	return deck, nil
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
