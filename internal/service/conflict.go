package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/krayon-edu/krs-planner-api/internal/models"
)

// ConflictReport lists every conflicting section pair in a combination.
type ConflictReport struct {
	Valid    bool     `json:"valid"`
	Messages []string `json:"messages"`
}

// Overlaps reports whether two time slots share any instant. Slots on
// different days never overlap; same-day slots are compared as half-open
// minute intervals, so a slot ending 09:00 does not overlap one starting
// 09:00.
func Overlaps(a, b models.TimeSlot) bool {
	if !strings.EqualFold(a.Day, b.Day) {
		return false
	}

	aStart, aEnd := clockMinutes(a.Start), clockMinutes(a.End)
	bStart, bEnd := clockMinutes(b.Start), clockMinutes(b.End)
	if aStart < 0 || aEnd < 0 || bStart < 0 || bEnd < 0 {
		return false
	}

	return max(aStart, bStart) < min(aEnd, bEnd)
}

// CheckConflicts examines every unordered pair of sections and reports one
// message per conflicting pair. All conflicting pairs are reported; only
// the slot scan within a pair stops at the first overlap.
func CheckConflicts(sections []models.Course) ConflictReport {
	report := ConflictReport{Valid: true, Messages: []string{}}

	for i := 0; i < len(sections); i++ {
		for j := i + 1; j < len(sections); j++ {
			if sectionsOverlap(sections[i], sections[j]) {
				report.Valid = false
				report.Messages = append(report.Messages,
					fmt.Sprintf("%s conflicts with %s", sections[i].Label(), sections[j].Label()))
			}
		}
	}

	return report
}

func sectionsOverlap(a, b models.Course) bool {
	for _, slotA := range a.Schedule {
		for _, slotB := range b.Schedule {
			if Overlaps(slotA, slotB) {
				return true
			}
		}
	}
	return false
}

// clockMinutes converts "HH:MM" to minutes since midnight, -1 if malformed.
func clockMinutes(clock string) int {
	parts := strings.SplitN(clock, ":", 2)
	if len(parts) != 2 {
		return -1
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return -1
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return -1
	}
	return hours*60 + minutes
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
