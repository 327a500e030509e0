package cricket

import (
	"fmt"
	"strconv"
)

// FormatOvers renders a ball count in cricket notation, 7 balls -> "1.1".
func FormatOvers(balls int) string {
	if balls < 0 {
		return "0.0"
	}
	return fmt.Sprintf("%d.%d", balls/BallsPerOver, balls%BallsPerOver)
}

func StrikeRate(runs, balls int) string {
	if balls == 0 {
		return "0.00"
	}
	return fixed2(float64(runs) / float64(balls) * 100)
}

// Economy is runs conceded per six-ball over.
func Economy(runsConceded, balls int) string {
	if balls == 0 {
		return "0.00"
	}
	return fixed2(float64(runsConceded) / (float64(balls) / BallsPerOver))
}

func RunRate(runs, balls int) string {
	return Economy(runs, balls)
}

func fixed2(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
