package timeline

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
)

const (
	MinZoom = 0.5
	MaxZoom = 3.0

	baseFontSize = 12.0
)

// Zoom is the pan/zoom transform applied to the content group.
type Zoom struct {
	K float64 `json:"k"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Identity is the unzoomed, unpanned view.
func Identity() Zoom { return Zoom{K: 1} }

// Clamp bounds K to [MinZoom, MaxZoom]. A zero or NaN K is treated as 1
// and non-finite offsets as 0.
func (z Zoom) Clamp() Zoom {
	if !finite(z.X) {
		z.X = 0
	}
	if !finite(z.Y) {
		z.Y = 0
	}
	switch {
	case z.K == 0, math.IsNaN(z.K):
		z.K = 1
	case z.K < MinZoom:
		z.K = MinZoom
	case z.K > MaxZoom:
		z.K = MaxZoom
	}
	return z
}

// Transform is the content group's transform attribute: the margin
// translation followed by the zoom.
func (z Zoom) Transform(m Margin) string {
	z = z.Clamp()
	return fmt.Sprintf("translate(%s,%s) translate(%s,%s) scale(%s)",
		num(m.Left), num(m.Top), num(z.X), num(z.Y), num(z.K))
}

// FontSize counter-scales text so labels keep their on-screen size.
func (z Zoom) FontSize() string {
	return num(baseFontSize/z.Clamp().K) + "px"
}

// ZoomFromQuery reads k, x and y; missing, malformed or non-finite values
// fall back to the identity.
func ZoomFromQuery(values url.Values) Zoom {
	z := Identity()
	if v, ok := queryFloat(values, "k"); ok {
		z.K = v
	}
	if v, ok := queryFloat(values, "x"); ok {
		z.X = v
	}
	if v, ok := queryFloat(values, "y"); ok {
		z.Y = v
	}
	return z.Clamp()
}

func queryFloat(values url.Values, key string) (float64, bool) {
	v, err := strconv.ParseFloat(values.Get(key), 64)
	if err != nil || !finite(v) {
		return 0, false
	}
	return v, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
