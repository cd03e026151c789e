// Package study drives interactive study sessions.
//
// A Session walks a queue built by srs.BuildQueue: it reveals each card,
// applies the learner's rating through the rating processor, persists the
// updated card and only then advances. When the session's new-card cap is
// reached it stops in PhaseLimitReached until the caller decides to continue,
// switch to review-only or exit.
//
// The Manager keeps the live sessions of all users, loads decks and daily
// progress at session start, and publishes events.TypeCardRated and
// events.TypeSessionFinished. The ProgressRecorder consumes card.rated events
// to keep the per-user daily counters current.
package study
