// Package timeline lays out activity events as a gitflow-style diagram
// and renders the layout to SVG. Layout is pure; rendering only walks a
// finished Layout.
package timeline

import (
	"errors"
	"time"
)

// ErrNoValidDates means no event carried a parseable date, so there is no
// time domain to draw against.
var ErrNoValidDates = errors.New("timeline: no valid dates")

const (
	domainPadding = 0.1
	tickFormat    = "Jan 02"
)

// Scale maps instants linearly onto [0, Width].
type Scale struct {
	Min   time.Time
	Max   time.Time
	Width float64
}

// Tick is one labelled axis position.
type Tick struct {
	X     float64 `json:"x"`
	Label string  `json:"label"`
}

// NewScale pads the min/max of dates by 10% of their range on each side.
func NewScale(dates []time.Time, width float64) (Scale, error) {
	if len(dates) == 0 {
		return Scale{}, ErrNoValidDates
	}
	lo, hi := dates[0], dates[0]
	for _, d := range dates[1:] {
		if d.Before(lo) {
			lo = d
		}
		if d.After(hi) {
			hi = d
		}
	}
	pad := time.Duration(float64(hi.Sub(lo)) * domainPadding)
	return Scale{Min: lo.Add(-pad), Max: hi.Add(pad), Width: width}, nil
}

// X maps t onto the pixel range. A zero-width domain puts everything at
// the middle.
func (s Scale) X(t time.Time) float64 {
	span := s.Max.Sub(s.Min)
	if span <= 0 {
		return s.Width / 2
	}
	return float64(t.Sub(s.Min)) / float64(span) * s.Width
}

// Ticks returns n evenly spaced ticks from Min to Max inclusive.
func (s Scale) Ticks(n int) []Tick {
	span := s.Max.Sub(s.Min)
	if n <= 0 {
		return nil
	}
	if span <= 0 || n == 1 {
		return []Tick{{X: s.X(s.Min), Label: s.Min.Format(tickFormat)}}
	}
	ticks := make([]Tick, n)
	for i := range ticks {
		at := s.Min.Add(time.Duration(float64(span) * float64(i) / float64(n-1)))
		ticks[i] = Tick{X: s.X(at), Label: at.Format(tickFormat)}
	}
	return ticks
}
