// Package calendar merges events and tasks into calendar entries and lays out month grids.
package calendar

import (
	"fmt"
	"sort"
	"time"

	"oms-backend/pkg/models"
)

const (
	ColorEventAccepted = "#3b82f6"
	ColorEventPending  = "#f59e0b"
	ColorEventRejected = "#ef4444"
	ColorTaskHigh      = "#dc2626"
	ColorTaskMedium    = "#f97316"
	ColorTaskLow       = "#22c55e"
	ColorTaskCompleted = "#9ca3af"
)

const (
	KindEvent = "event"
	KindTask  = "task"
)

type Entry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	AllDay    bool      `json:"allDay"`
	Color     string    `json:"color"`
	Kind      string    `json:"kind"`
	Completed bool      `json:"completed"`
}

// Merge converts events and tasks to entries sorted by start, then title.
func Merge(events []models.Event, tasks []models.Task) []Entry {
	out := make([]Entry, 0, len(events)+len(tasks))
	for _, e := range events {
		out = append(out, Entry{
			ID:    e.ID,
			Title: e.Name,
			Start: e.Date,
			End:   e.Date,
			Color: EventColor(e.Status),
			Kind:  KindEvent,
		})
	}
	for _, t := range tasks {
		day := time.Date(t.DueDate.Year(), t.DueDate.Month(), t.DueDate.Day(), 0, 0, 0, 0, t.DueDate.Location())
		out = append(out, Entry{
			ID:        t.ID,
			Title:     t.Name,
			Start:     day,
			End:       day,
			AllDay:    true,
			Color:     TaskColor(t.Priority, t.Completed),
			Kind:      KindTask,
			Completed: t.Completed,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].Title < out[j].Title
	})
	return out
}

func EventColor(s models.EventStatus) string {
	switch s {
	case models.EventAccepted:
		return ColorEventAccepted
	case models.EventRejected:
		return ColorEventRejected
	default:
		return ColorEventPending
	}
}

// TaskColor colors open tasks by priority; completed tasks are grey. Unknown priorities count as medium.
func TaskColor(p models.TaskPriority, completed bool) string {
	if completed {
		return ColorTaskCompleted
	}
	switch p {
	case models.PriorityHigh:
		return ColorTaskHigh
	case models.PriorityLow:
		return ColorTaskLow
	default:
		return ColorTaskMedium
	}
}

// Grid is a month laid out in weeks. Zero cells are blanks before the 1st or after the last day.
type Grid struct {
	Year               int      `json:"year"`
	Month              int      `json:"month"`
	WeekStart          string   `json:"weekStart"`
	FirstWeekdayOffset int      `json:"firstWeekdayOffset"`
	DaysInMonth        int      `json:"daysInMonth"`
	Weeks              [][7]int `json:"weeks"`
}

// MonthGrid computes the grid for month (1-12) with weeks beginning on weekStart.
func MonthGrid(year int, month time.Month, weekStart time.Weekday) (Grid, error) {
	if month < time.January || month > time.December {
		return Grid{}, fmt.Errorf("month %d: %w", month, models.ErrInvalidInput)
	}
	if weekStart < time.Sunday || weekStart > time.Saturday {
		return Grid{}, fmt.Errorf("week start %d: %w", weekStart, models.ErrInvalidInput)
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	days := first.AddDate(0, 1, -1).Day()
	offset := (int(first.Weekday()) - int(weekStart) + 7) % 7

	g := Grid{
		Year:               year,
		Month:              int(month),
		WeekStart:          weekStart.String(),
		FirstWeekdayOffset: offset,
		DaysInMonth:        days,
	}
	var week [7]int
	col := offset
	for day := 1; day <= days; day++ {
		week[col] = day
		col++
		if col == 7 {
			g.Weeks = append(g.Weeks, week)
			week, col = [7]int{}, 0
		}
	}
	if col > 0 {
		g.Weeks = append(g.Weeks, week)
	}
	return g, nil
}
