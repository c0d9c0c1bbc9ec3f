package appointments

import "strings"

// Priority is the triage level derived from symptom text. Lower is more
// urgent.
type Priority int

const (
	PriorityUrgent Priority = 1
	PriorityHigh   Priority = 2
	PriorityMedium Priority = 3
	PriorityLow    Priority = 4
)

// Label returns the display name for the priority level.
func (p Priority) Label() string {
	switch p {
	case PriorityUrgent:
		return "Urgent"
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	case PriorityLow:
		return "Low (Routine)"
	default:
		return "Unknown"
	}
}

// priorityTiers holds keyword tiers ordered most severe first. The first tier
// with a matching keyword wins.
var priorityTiers = []struct {
	level    Priority
	keywords []string
}{
	{PriorityUrgent, []string{
		"chest pain",
		"breathing difficulty",
		"severe bleeding",
		"unconscious",
		"stroke symptoms",
		"cannot breathe",
	}},
	{PriorityHigh, []string{
		"high fever",
		"severe migraine",
		"intense pain",
		"allergic reaction",
		"vomiting blood",
		"dizziness",
	}},
	{PriorityMedium, []string{
		"sore throat",
		"cough",
		"cold",
		"flu",
		"stomach ache",
		"headache",
	}},
}

// ClassifyPriority maps free-text symptoms to a triage level. Matching is a
// case-insensitive substring check; empty or unmatched text is routine.
func ClassifyPriority(symptoms string) Priority {
	text := strings.ToLower(symptoms)
	for _, tier := range priorityTiers {
		for _, keyword := range tier.keywords {
			if strings.Contains(text, keyword) {
				return tier.level
			}
		}
	}
	return PriorityLow
}
