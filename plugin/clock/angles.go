package clock

// Angles are hand rotations in degrees, clockwise from twelve o'clock.
type Angles struct {
	Hour   float64 `json:"hour"`
	Minute float64 `json:"minute"`
	Second float64 `json:"second"`
}

// HandAngles maps a time value to hand angles. The minute hand creeps with the
// seconds and the hour hand creeps with the minutes.
func HandAngles(t TimeValue) Angles {
	return Angles{
		Hour:   float64(t.hours%12)*30 + float64(t.minutes)*0.5,
		Minute: float64(t.minutes)*6 + float64(t.seconds)*0.1,
		Second: float64(t.seconds) * 6,
	}
}
