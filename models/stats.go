package models

import "math"

// Stats is the derived answer aggregate for a user
type Stats struct {
	Total   int
	Correct int
}

// Percent returns round(correct/total*100), or 0 when nothing was answered
func (s Stats) Percent() int {
	if s.Total == 0 {
		return 0
	}
	return int(math.Round(float64(s.Correct) / float64(s.Total) * 100))
}
