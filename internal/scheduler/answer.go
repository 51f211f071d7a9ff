package scheduler

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/mothlight/srscore/internal/domain"
)

// Transactor commits a card update and its review-log row atomically. The
// concrete implementation wired by the CLI harness is
// internal/adapter/postgres.TxManager; a nil Transactor runs the two writes
// sequentially, uncoordinated (acceptable only for tests against a fake
// gateway).
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AnswerCard applies the caller's grade to a card previously returned by
// GetCard (§4.5). elapsed is the time the caller measured the card was on
// screen, used to cap the logged answer duration.
func (s *Scheduler) AnswerCard(ctx context.Context, cardID uuid.UUID, ease domain.Ease, elapsed time.Duration) error {
	if !ease.Valid() {
		return fmt.Errorf("answer card %s: %w: ease %d out of range", cardID, domain.ErrValidation, ease)
	}

	card, err := s.gw.GetCard(ctx, cardID)
	if err != nil {
		return fmt.Errorf("answer card %s: %w: %v", cardID, domain.ErrStorageError, err)
	}

	conf, err := s.conf.configFor(ctx, card.GID)
	if err != nil {
		return err
	}

	s.reps++
	card.Reps++

	if card.Queue == domain.QueueNew {
		card.Queue = domain.QueueLrn
		card.Type = domain.TypeLrn
	}

	var logRow domain.ReviewLogRow
	var invariantErr error

	switch card.Queue {
	case domain.QueueLrn:
		logRow = s.answerLrnCard(&card, ease, conf)
	case domain.QueueRev:
		logRow = s.answerRevCard(&card, ease, conf)
	default:
		invariantErr = fmt.Errorf("answer card %s: %w: unexpected queue %s", cardID, domain.ErrInvariantViolation, card.Queue)
		card.Queue = domain.QueueLrn
	}

	card.Mod = s.clock.Now().Unix()
	logRow.TakenMS = takenMS(elapsed, conf.MaxTaken)

	persist := func(ctx context.Context) error {
		if err := s.gw.UpdateCard(ctx, cardUpdateFromCard(card)); err != nil {
			return fmt.Errorf("answer card %s: %w: %v", cardID, domain.ErrStorageError, err)
		}
		if invariantErr != nil {
			return nil
		}
		return s.writeReviewLog(ctx, logRow)
	}

	if s.tx != nil {
		if err := s.tx.RunInTx(ctx, persist); err != nil {
			return err
		}
	} else if err := persist(ctx); err != nil {
		return err
	}

	if s.Hooks.MarkReview != nil {
		s.Hooks.MarkReview(&card)
	}
	return invariantErr
}

func cardUpdateFromCard(c domain.Card) CardUpdate {
	return CardUpdate{
		ID: c.ID, Queue: c.Queue, Type: c.Type, Due: c.Due, Ivl: c.Ivl,
		Factor: c.Factor, Grade: c.Grade, Cycles: c.Cycles, Lapses: c.Lapses,
		LastIvl: c.LastIvl, EDue: c.EDue, Reps: c.Reps, Mod: c.Mod,
	}
}

// answerLrnCard implements the learning transition (§4.5.1).
func (s *Scheduler) answerLrnCard(card *domain.Card, ease domain.Ease, conf domain.GroupConfig) domain.ReviewLogRow {
	lapseConf := card.Type == domain.TypeRev
	stepConf, logType := learningStepConf(conf, lapseConf)

	preAnswerGrade := card.Grade
	leaving := false

	switch {
	case ease == domain.EaseGood:
		s.rescheduleAsRev(card, stepConf, conf, true)
		leaving = true
	case ease == domain.EaseHard && card.Grade+1 >= len(stepConf.delays):
		s.rescheduleAsRev(card, stepConf, conf, false)
		leaving = true
	default:
		card.Cycles++
		if ease == domain.EaseHard {
			card.Grade++
		} else {
			card.Grade = 0
		}
		delay := delayForGrade(stepConf.delays, card.Grade)
		now := s.clock.Now().Unix()
		if int64(card.Due) < now {
			delay = int(float64(delay) * (1.0 + rand.Float64()*0.25))
		}
		card.Due = now + int64(delay)
		s.lrnQ.push(card.Due, card.ID)
		if int64(delay) <= int64(conf.CollapseTime.Seconds()) {
			s.lrnCount++
		}
	}

	lastIvl := -delayForGrade(stepConf.delays, max(0, preAnswerGrade-1))
	ivl := card.Ivl
	if !leaving {
		ivl = -delayForGrade(stepConf.delays, card.Grade)
	}

	return domain.ReviewLogRow{
		CardID: card.ID, Ease: ease, Ivl: ivl, LastIvl: lastIvl,
		Factor: card.Factor, LogType: logType,
	}
}

// answerRevCard implements the review transition (§4.5.2).
func (s *Scheduler) answerRevCard(card *domain.Card, ease domain.Ease, conf domain.GroupConfig) domain.ReviewLogRow {
	if ease == domain.EaseAgain {
		s.rescheduleLapse(card, conf)
		return domain.ReviewLogRow{
			CardID: card.ID, Ease: ease, Ivl: card.Ivl, LastIvl: card.LastIvl,
			Factor: card.Factor, LogType: domain.LogReview,
		}
	}

	card.LastIvl = card.Ivl
	late := daysLate(s.today(), card.Due)
	ideal := nextRevIvl(card.Ivl, card.Factor, late, ease, conf.Rev.Ease4)

	dues, err := s.gw.SiblingDues(context.Background(), card.FID, card.ID)
	if err == nil {
		ideal = adjRevIvl(s.today(), ideal, dues, conf.Rev.MinSpace, conf.Rev.Fuzz)
	}

	card.Ivl = ideal
	card.Factor = nextFactor(card.Factor, ease)
	card.Due = s.today() + int64(card.Ivl)

	return domain.ReviewLogRow{
		CardID: card.ID, Ease: ease, Ivl: card.Ivl, LastIvl: card.LastIvl,
		Factor: card.Factor, LogType: domain.LogReview,
	}
}

// rescheduleLapse implements the lapse path (§4.7).
func (s *Scheduler) rescheduleLapse(card *domain.Card, conf domain.GroupConfig) {
	card.Lapses++
	card.LastIvl = card.Ivl
	card.Ivl = lapseIvl(card.Ivl, conf.Lapse.Mult)
	card.Factor = nextFactorFloor(card.Factor)
	card.Due = s.today() + int64(card.Ivl)

	if conf.Lapse.Relearn {
		card.EDue = card.Due
		card.Due = s.clock.Now().Unix() + int64(delayForGrade(conf.Lapse.Delays, 0))
		card.Queue = domain.QueueLrn
		s.lrnCount++
		s.lrnQ.push(card.Due, card.ID)
	}

	if checkLeech(card, conf.Lapse) && s.Hooks.Leech != nil {
		s.Hooks.Leech(card)
	}
}

// nextFactorFloor applies the lapse-path ease penalty (§4.7 step 3).
func nextFactorFloor(factor int) int {
	f := factor - 200
	if f < 1300 {
		return 1300
	}
	return f
}

type learningConf struct {
	delays []int
}

// learningStepConf selects new-card vs lapse-card learning steps (§4.5.1).
func learningStepConf(conf domain.GroupConfig, relearning bool) (learningConf, domain.LogType) {
	if relearning {
		return learningConf{delays: conf.Lapse.Delays}, domain.LogRelearn
	}
	return learningConf{delays: conf.New.Delays}, domain.LogLearn
}

// rescheduleAsRev graduates a learning card into the review queue (§4.6).
func (s *Scheduler) rescheduleAsRev(card *domain.Card, step learningConf, conf domain.GroupConfig, early bool) {
	if card.Type == domain.TypeRev {
		// Relearning a lapsed card: keep ivl, restore the saved due.
		card.Due = card.EDue
	} else {
		card.Ivl = s.graduatingIvl(card, conf, early)
		card.Due = s.today() + int64(card.Ivl)
		card.Factor = conf.New.InitialFactor
	}
	card.Queue = domain.QueueRev
	card.Type = domain.TypeRev
	_ = step
}

// graduatingIvl computes the interval a card graduates to (§4.6).
func (s *Scheduler) graduatingIvl(card *domain.Card, conf domain.GroupConfig, early bool) int {
	if card.Type == domain.TypeRev {
		return card.Ivl
	}
	var ideal int
	switch {
	case !early:
		ideal = conf.New.Ints[0]
	case card.Cycles > 0:
		ideal = conf.New.Ints[2]
	default:
		ideal = conf.New.Ints[1]
	}
	dues, err := s.gw.SiblingDues(context.Background(), card.FID, card.ID)
	if err != nil {
		return ideal
	}
	return adjRevIvl(s.today(), ideal, dues, conf.Rev.MinSpace, conf.Rev.Fuzz)
}

