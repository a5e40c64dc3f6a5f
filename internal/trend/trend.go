// Package trend labels the lifecycle stage of an ROI series.
package trend

type Label string

const (
	InsufficientData Label = "Insufficient Data"
	HighRisk         Label = "High Risk"
	Growth           Label = "Growth"
	Decline          Label = "Decline"
	Stable           Label = "Stable"
)

var explanations = map[Label]string{
	InsufficientData: "Not enough ROI history.",
	HighRisk:         "Consistently negative ROI.",
	Growth:           "Demand accelerating.",
	Decline:          "ROI falling, investigate.",
	Stable:           "Watch for movement.",
}

// Explanation returns the fixed advice attached to a label.
func (l Label) Explanation() string {
	return explanations[l]
}

// Classify looks at the last three values only. Rules are checked in order:
// fewer than three values, all negative, strictly increasing, strictly
// decreasing, otherwise stable.
func Classify(values []float64) (Label, string) {
	label := classify(values)
	return label, label.Explanation()
}

func classify(values []float64) Label {
	if len(values) < 3 {
		return InsufficientData
	}
	last := values[len(values)-3:]
	t1, t2, t3 := last[0], last[1], last[2]
	switch {
	case t1 < 0 && t2 < 0 && t3 < 0:
		return HighRisk
	case t1 < t2 && t2 < t3:
		return Growth
	case t1 > t2 && t2 > t3:
		return Decline
	default:
		return Stable
	}
}
