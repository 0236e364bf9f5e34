package session

import (
	"errors"
	"fmt"
)

// ErrUnknownPredecessor is returned when a session points at a session that is not configured
var ErrUnknownPredecessor = errors.New("unknown predecessor session")

// Link is an edge of the predecessor graph
type Link struct {
	Previous ID
	// DayShift is the number of trading days the predecessor's date is moved
	// forward before it is joined to this session's date.
	DayShift int
}

// Chain maps each session to the session it is compared against
type Chain map[ID]Link

// NewChain builds the predecessor table of specs. A session without a
// predecessor has no entry.
func NewChain(specs []Spec) (Chain, error) {
	known := make(map[ID]bool, len(specs))
	for _, s := range specs {
		known[s.ID] = true
	}

	chain := make(Chain, len(specs))
	for _, s := range specs {
		if s.Previous == "" {
			continue
		}
		if !known[s.Previous] {
			return nil, fmt.Errorf("%w: %s -> %s", ErrUnknownPredecessor, s.ID, s.Previous)
		}
		link := Link{Previous: s.Previous}
		if s.PreviousTradingDay {
			link.DayShift = 1
		}
		chain[s.ID] = link
	}
	return chain, nil
}

// Predecessor returns the link for id
func (c Chain) Predecessor(id ID) (Link, bool) {
	link, ok := c[id]
	return link, ok
}
