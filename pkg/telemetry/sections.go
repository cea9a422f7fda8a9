package telemetry

// Section classifies a telemetry sample as belonging to a part of the lap.
type Section struct {
	Name     string
	Label    string
	Contains func(s Sample) bool
}

const (
	cornerMaxGear  = 5
	cornerMinSpeed = 100
)

var (
	Braking = Section{
		Name:  "braking",
		Label: "Braking",
		Contains: func(s Sample) bool {
			return s.Brake
		},
	}

	// Cornering is a coarse approximation (low gear at speed), not a geometric
	// corner detector.
	Cornering = Section{
		Name:  "cornering",
		Label: "Cornering (approx.)",
		Contains: func(s Sample) bool {
			return s.Gear < cornerMaxGear && s.Speed > cornerMinSpeed
		},
	}

	Acceleration = Section{
		Name:  "acceleration",
		Label: "Acceleration",
		Contains: func(s Sample) bool {
			return s.Throttle > 80 && s.Throttle < 100
		},
	}

	FullThrottle = Section{
		Name:  "full_throttle",
		Label: "Full throttle",
		Contains: func(s Sample) bool {
			return s.Throttle >= 100
		},
	}

	Sections = []Section{Braking, Cornering, Acceleration, FullThrottle}
)

// Filter returns the samples within the section.
func (sec Section) Filter(samples []Sample) []Sample {
	var out []Sample

	for _, sample := range samples {
		if sec.Contains(sample) {
			out = append(out, sample)
		}
	}

	return out
}
