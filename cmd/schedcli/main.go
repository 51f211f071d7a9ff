// Command schedcli drives a study session or runs an administrative
// operation against the scheduler core. It has no server loop: each
// invocation bootstraps the Postgres gateways, runs one subcommand, and
// exits.
//
// Subcommands:
//
//	counts   --group=<uuid>[,...]           print (new, lrn, rev) queue sizes
//	next     --group=<uuid>[,...]           show the next due card id
//	answer   --card=<uuid> --ease=1..4      grade the shown card
//	suspend  --card=<uuid>[,...]            suspend cards
//	unsuspend --card=<uuid>[,...]           unsuspend cards
//	unbury   --group=<uuid>[,...]           unbury a group's buried cards
//	forget   --card=<uuid>[,...]            reset cards to new
//	reindex                                 recreate ix_cards_multi
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/mothlight/srscore/internal/app"
	"github.com/mothlight/srscore/internal/domain"
	"github.com/mothlight/srscore/pkg/ctxutil"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx := ctxutil.WithRequestID(context.Background(), uuid.NewString())
	deps, err := app.Bootstrap(ctx)
	if err != nil {
		slog.Error("bootstrap failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer deps.Close()
	deps.Logger = deps.Logger.With(slog.String("request_id", ctxutil.RequestIDFromCtx(ctx)))

	cmd, args := os.Args[1], os.Args[2:]
	var runErr error
	switch cmd {
	case "counts":
		runErr = runCounts(ctx, deps, args)
	case "next":
		runErr = runNext(ctx, deps, args)
	case "answer":
		runErr = runAnswer(ctx, deps, args)
	case "suspend":
		runErr = runSuspend(ctx, deps, args, true)
	case "unsuspend":
		runErr = runSuspend(ctx, deps, args, false)
	case "unbury":
		runErr = runUnbury(ctx, deps, args)
	case "forget":
		runErr = runForget(ctx, deps, args)
	case "reindex":
		runErr = runReindex(ctx, deps)
	default:
		usage()
		os.Exit(1)
	}

	if runErr != nil {
		deps.Logger.Error(cmd+" failed", slog.String("error", runErr.Error()))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: schedcli <counts|next|answer|suspend|unsuspend|unbury|forget|reindex> [flags]")
}

func parseGroups(raw string) ([]uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var groups []uuid.UUID
	for _, p := range strings.Split(raw, ",") {
		id, err := uuid.Parse(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid group id %q: %w", p, err)
		}
		groups = append(groups, id)
	}
	return groups, nil
}

func parseIDs(raw string) ([]uuid.UUID, error) {
	return parseGroups(raw)
}

func runCounts(ctx context.Context, deps *app.Deps, args []string) error {
	fs := flag.NewFlagSet("counts", flag.ExitOnError)
	groupFlag := fs.String("group", "", "comma-separated group ids (default: all)")
	fs.Parse(args)

	groups, err := parseGroups(*groupFlag)
	if err != nil {
		return err
	}

	s := deps.NewScheduler(groups)
	if err := s.Reset(ctx); err != nil {
		return fmt.Errorf("reset scheduler: %w", err)
	}
	newCount, lrnCount, revCount := s.Counts()
	fmt.Printf("new=%d lrn=%d rev=%d\n", newCount, lrnCount, revCount)
	return nil
}

func runNext(ctx context.Context, deps *app.Deps, args []string) error {
	fs := flag.NewFlagSet("next", flag.ExitOnError)
	groupFlag := fs.String("group", "", "comma-separated group ids (default: all)")
	fs.Parse(args)

	groups, err := parseGroups(*groupFlag)
	if err != nil {
		return err
	}

	s := deps.NewScheduler(groups)
	if err := s.Reset(ctx); err != nil {
		return fmt.Errorf("reset scheduler: %w", err)
	}

	card, err := s.GetCard(ctx)
	if err != nil {
		return fmt.Errorf("get next card: %w", err)
	}
	if card == nil {
		fmt.Println("finished:", finishedLabel(s.FinishedState()))
		return nil
	}
	fmt.Printf("card=%s queue=%s type=%s due=%d ivl=%d factor=%d\n",
		card.ID, card.Queue, card.Type, card.Due, card.Ivl, card.Factor)
	return nil
}

func finishedLabel(st domain.FinishedState) string {
	switch st {
	case domain.FinishedCongratulations:
		return "congratulations"
	case domain.FinishedMoreToStudyLater:
		return "more_to_study_later"
	default:
		return "limits_reached"
	}
}

func runAnswer(ctx context.Context, deps *app.Deps, args []string) error {
	fs := flag.NewFlagSet("answer", flag.ExitOnError)
	cardFlag := fs.String("card", "", "card id to answer")
	easeFlag := fs.Int("ease", 0, "grade 1 (again) .. 4 (easy)")
	elapsedFlag := fs.Duration("elapsed", 0, "time taken to answer, e.g. 3s (default: the configured max)")
	fs.Parse(args)

	cardID, err := uuid.Parse(*cardFlag)
	if err != nil {
		return fmt.Errorf("invalid card id: %w", err)
	}
	ease := domain.Ease(*easeFlag)
	if !ease.Valid() {
		return fmt.Errorf("ease must be 1..4, got %d", *easeFlag)
	}

	elapsed := *elapsedFlag
	if elapsed <= 0 {
		elapsed = deps.Config.Scheduler.MaxTaken
	}

	s := deps.NewScheduler(nil)
	if err := s.AnswerCard(ctx, cardID, ease, elapsed); err != nil {
		return fmt.Errorf("answer card: %w", err)
	}
	fmt.Println("ok")
	return nil
}

func runSuspend(ctx context.Context, deps *app.Deps, args []string, suspend bool) error {
	fs := flag.NewFlagSet("suspend", flag.ExitOnError)
	cardFlag := fs.String("card", "", "comma-separated card ids")
	fs.Parse(args)

	ids, err := parseIDs(*cardFlag)
	if err != nil {
		return err
	}

	s := deps.NewScheduler(nil)
	if suspend {
		return s.SuspendCards(ctx, ids)
	}
	return s.UnsuspendCards(ctx, ids)
}

func runUnbury(ctx context.Context, deps *app.Deps, args []string) error {
	fs := flag.NewFlagSet("unbury", flag.ExitOnError)
	groupFlag := fs.String("group", "", "comma-separated group ids (default: all)")
	fs.Parse(args)

	groups, err := parseGroups(*groupFlag)
	if err != nil {
		return err
	}

	s := deps.NewScheduler(groups)
	return s.Unbury(ctx, groups)
}

func runForget(ctx context.Context, deps *app.Deps, args []string) error {
	fs := flag.NewFlagSet("forget", flag.ExitOnError)
	cardFlag := fs.String("card", "", "comma-separated card ids")
	randomFlag := fs.Bool("random", false, "assign a random new-card position")
	fs.Parse(args)

	ids, err := parseIDs(*cardFlag)
	if err != nil {
		return err
	}

	s := deps.NewScheduler(nil)
	return s.ForgetCards(ctx, ids, *randomFlag)
}

func runReindex(ctx context.Context, deps *app.Deps) error {
	columns := []string{"queue", "due", "gid"}
	return deps.Cards.EnsureCardsIndex(ctx, columns)
}
