package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/krayon-edu/krs-planner-api/internal/models"
)

func TestScoreCombinationCrammedWeek(t *testing.T) {
	sections := []models.Course{
		section("s1", "CS101", "A", slot("MONDAY", "08:00", "10:00")),
		section("s2", "MATH201", "B", slot("MONDAY", "10:00", "12:00")),
		section("s3", "PHYS110", "A", slot("TUESDAY", "08:00", "10:00")),
	}

	score, labels := ScoreCombination(sections)
	assert.Equal(t, 50+20, score.Safe) // base + light daily loads
	assert.Equal(t, 30, score.Risky)
	assert.Equal(t, 0, score.Optimal)
	assert.Contains(t, labels, "Crammed into few days")
	assert.Contains(t, labels, "Light daily loads")
}

func TestScoreCombinationBalancedFiveDays(t *testing.T) {
	sections := []models.Course{
		section("s1", "A1", "A", slot("MONDAY", "09:00", "10:00")),
		section("s2", "A2", "A", slot("TUESDAY", "09:00", "10:00")),
		section("s3", "A3", "A", slot("WEDNESDAY", "09:00", "10:00")),
		section("s4", "A4", "A", slot("THURSDAY", "09:00", "10:00")),
		section("s5", "A5", "A", slot("FRIDAY", "09:00", "10:00")),
	}

	score, labels := ScoreCombination(sections)
	assert.Equal(t, 50+20+20, score.Safe)
	assert.Equal(t, 0, score.Risky)
	assert.Contains(t, labels, "Balanced spread")
}

func TestScoreCombinationFourDaysIsOptimal(t *testing.T) {
	sections := []models.Course{
		section("s1", "A1", "A", slot("MONDAY", "09:00", "10:00")),
		section("s2", "A2", "A", slot("TUESDAY", "09:00", "10:00")),
		section("s3", "A3", "A", slot("WEDNESDAY", "09:00", "10:00")),
		section("s4", "A4", "A", slot("THURSDAY", "09:00", "10:00")),
	}

	score, labels := ScoreCombination(sections)
	assert.Equal(t, 20, score.Optimal)
	assert.Contains(t, labels, "4-day week possible")
}

func TestScoreCombinationHeavyDay(t *testing.T) {
	sections := []models.Course{
		section("s1", "A1", "A",
			slot("MONDAY", "08:00", "09:00"),
			slot("MONDAY", "09:00", "10:00"),
			slot("MONDAY", "10:00", "11:00"),
			slot("MONDAY", "11:00", "12:00"),
		),
		section("s2", "A2", "A", slot("TUESDAY", "09:00", "10:00")),
	}

	score, labels := ScoreCombination(sections)
	assert.Equal(t, 40+30, score.Risky) // heavy day + crammed week
	assert.Contains(t, labels, "Heavy daily load (>4 classes)")
	assert.NotContains(t, labels, "Light daily loads")
}

func TestScoreCombinationEarlyMorningPenalty(t *testing.T) {
	sections := []models.Course{
		section("s1", "A1", "A", slot("MONDAY", "07:30", "09:00")),
	}

	score, labels := ScoreCombination(sections)
	assert.Contains(t, labels, "Early morning classes")
	assert.Equal(t, 30+10, score.Risky) // crammed week + early morning

	late := []models.Course{
		section("s1", "A1", "A", slot("MONDAY", "08:00", "09:00")),
	}
	_, lateLabels := ScoreCombination(late)
	assert.NotContains(t, lateLabels, "Early morning classes")
}

func TestScoreCombinationCountsSlotsNotSections(t *testing.T) {
	// One section meeting four times on the same day trips the heavy-day
	// rule on its own.
	sections := []models.Course{
		section("s1", "LAB1", "A",
			slot("FRIDAY", "08:00", "09:00"),
			slot("FRIDAY", "09:00", "10:00"),
			slot("FRIDAY", "10:00", "11:00"),
			slot("FRIDAY", "13:00", "14:00"),
		),
	}

	_, labels := ScoreCombination(sections)
	assert.Contains(t, labels, "Heavy daily load (>4 classes)")
}
