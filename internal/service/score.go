package service

import (
	"strings"

	"github.com/krayon-edu/krs-planner-api/internal/models"
)

const baseSafeScore = 50

// Analysis labels attached to scored combinations.
const (
	labelCrammedDays  = "Crammed into few days"
	labelBalanced     = "Balanced spread"
	labelFourDayWeek  = "4-day week possible"
	labelHeavyDays    = "Heavy daily load (>4 classes)"
	labelLightDays    = "Light daily loads"
	labelEarlyClasses = "Early morning classes"
)

// ScoreCombination computes the heuristic quality signals for one
// conflict-free combination of sections. The three accumulators are raw
// signals for relative comparison; the labels explain which rules fired.
func ScoreCombination(sections []models.Course) (models.PlanScore, []string) {
	score := models.PlanScore{Safe: baseSafeScore}
	labels := make([]string, 0, 3)

	slotsPerDay := make(map[string]int)
	early := false
	for _, section := range sections {
		for _, slot := range section.Schedule {
			slotsPerDay[strings.ToUpper(slot.Day)]++
			if strings.HasPrefix(slot.Start, "07") {
				early = true
			}
		}
	}

	// Day-spread buckets. The ≤3 / =5 split mirrors the product
	// heuristic; 4, 6 and 7 distinct days all land in the "optimal"
	// bucket, a known quirk kept for parity.
	switch distinctDays := len(slotsPerDay); {
	case distinctDays <= 3:
		score.Risky += 30
		labels = append(labels, labelCrammedDays)
	case distinctDays == 5:
		score.Safe += 20
		labels = append(labels, labelBalanced)
	default:
		score.Optimal += 20
		labels = append(labels, labelFourDayWeek)
	}

	maxPerDay := 0
	for _, count := range slotsPerDay {
		if count > maxPerDay {
			maxPerDay = count
		}
	}
	if maxPerDay >= 4 {
		score.Risky += 40
		labels = append(labels, labelHeavyDays)
	} else {
		score.Safe += 20
		labels = append(labels, labelLightDays)
	}

	if early {
		score.Risky += 10
		labels = append(labels, labelEarlyClasses)
	}

	return score, labels
}
