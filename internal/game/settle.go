package game

import (
	"fmt"
	"strings"

	"github.com/openfelt/feltserver/internal/protocol"
)

// settle pays the pot out in layers. Each layer is capped at the smallest
// commitment among the remaining contenders, so short all-in stacks win only
// what they matched. Folded seats feed each layer up to the cap and get any
// uncoverable excess refunded.
func (e *Engine) settle() {
	if e.round.Pot <= 0 {
		return
	}
	var ranked, folded []*Seat
	for _, s := range e.seats {
		if s.Folded {
			folded = append(folded, s)
		} else {
			ranked = append(ranked, s)
		}
	}
	if len(ranked) > 1 {
		for _, s := range ranked {
			res, err := e.eval.Evaluate(e.hand.EvaluationCards(s.Position))
			if err != nil {
				e.logger.Error("hand evaluation failed", "game", e.name, "seat", s.Name, "err", err)
				continue
			}
			s.HandRank = res.Rank
			s.HandName = res.Name
			s.BestFive = res.BestFive
		}
	}
	for e.round.Pot > 0 {
		if len(ranked) == 0 {
			e.refundFolded(folded)
			break
		}
		e.settleLayer(&ranked, folded)
		folded = trimCommitted(folded)
	}
	// Score is the seat's cumulative net over the whole game. Stacks carry
	// across hands, so the net is simply stack minus buy-in; in a Doyle's
	// game the stack resets every hand and the per-hand deltas accumulate.
	for _, s := range e.seats {
		if e.def.DoylesGame() {
			s.Score += s.Stack - s.BuyIn
		} else {
			s.Score = s.Stack - s.BuyIn
		}
	}
	e.logDivat()
}

// settleLayer pays one side-pot layer and drops the contenders whose
// commitment it exhausts.
func (e *Engine) settleLayer(ranked *[]*Seat, folded []*Seat) {
	contenders := *ranked
	minCommit := contenders[0].Committed
	for _, s := range contenders[1:] {
		if s.Committed < minCommit {
			minCommit = s.Committed
		}
	}
	best := contenders[0].HandRank
	for _, s := range contenders[1:] {
		if s.HandRank > best {
			best = s.HandRank
		}
	}
	var winners []*Seat
	for _, s := range contenders {
		if s.HandRank == best {
			winners = append(winners, s)
		}
	}

	payout := len(contenders) * minCommit
	for _, s := range folded {
		c := min(s.Committed, minCommit)
		payout += c
		s.Committed -= c
	}

	share := payout / len(winners)
	extra := payout % len(winners)
	showdown := len(contenders) > 1
	summary := make([]string, len(winners))
	for i, w := range winners {
		amount := share
		if i == 0 {
			// The odd chip goes to the winner earliest in position order.
			amount += extra
		}
		w.Payout(amount)
		e.round.Take(amount)
		if showdown {
			summary[i] = fmt.Sprintf("%s won %d with hand %s/%s", w.Name, amount, w.HandName, w.BestFive)
		} else {
			summary[i] = fmt.Sprintf("%s won %d", w.Name, amount)
		}
	}

	if showdown {
		cards := protocol.ShowdownCardsView(e.hand)
		for _, s := range e.seats {
			view := protocol.MatchState(s.Position, e.handsPlayed, e.round.ActionLog, cards)
			e.deliver(s, view)
		}
		e.record(protocol.MatchState(0, e.handsPlayed, e.round.ActionLog, cards))
	}
	line := protocol.Showdown(strings.Join(summary, ":"))
	for _, s := range e.seats {
		if s.Kind == KindGUI {
			e.deliver(s, line)
		}
	}
	e.record(line)

	kept := contenders[:0]
	for _, s := range contenders {
		s.Committed -= minCommit
		if s.Committed > 0 {
			kept = append(kept, s)
		}
	}
	*ranked = kept
}

// refundFolded returns commitments no contender can cover.
func (e *Engine) refundFolded(folded []*Seat) {
	for _, s := range folded {
		if s.Committed <= 0 {
			continue
		}
		refund := min(s.Committed, e.round.Pot)
		s.Payout(refund)
		s.Committed -= refund
		e.round.Take(refund)
		e.logger.Debug("refunding uncovered commitment", "game", e.name, "seat", s.Name, "amount", refund)
	}
}

func trimCommitted(seats []*Seat) []*Seat {
	kept := seats[:0]
	for _, s := range seats {
		if s.Committed > 0 {
			kept = append(kept, s)
		}
	}
	return kept
}

// logDivat emits one hand-summary line per settled hand for limit two-player
// games, in the format downstream analysis tools consume.
func (e *Engine) logDivat() {
	if e.def.NoLimit || e.def.MaxPlayers != 2 {
		return
	}
	names := make([]string, len(e.seats))
	scores := make([]string, len(e.seats))
	for i, s := range e.seats {
		names[i] = s.Name
		scores[i] = fmt.Sprintf("%d", s.Score)
	}
	e.rec.Divat(fmt.Sprintf("%d:%s:0%s:%s:%s",
		e.handsPlayed,
		strings.Join(names, ","),
		e.round.ActionLog,
		protocol.ShowdownCardsView(e.hand),
		strings.Join(scores, ",")))
}
