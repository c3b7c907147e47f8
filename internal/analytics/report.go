package analytics

import (
	"time"

	"github.com/claude/nextrep/internal/models"
)

// ExerciseComparison is the best set volume of one exercise in the three
// comparison windows.
type ExerciseComparison struct {
	ExerciseName string  `json:"exercise_name"`
	Today        float64 `json:"today"`
	WeekAgo      float64 `json:"week_ago"`
	MonthAgo     float64 `json:"month_ago"`
}

// ProgressCard groups the comparisons of one plan.
type ProgressCard struct {
	PlanName  string               `json:"plan_name"`
	Exercises []ExerciseComparison `json:"exercises"`
}

// ChartPoint is one bar of the weekly chart.
type ChartPoint struct {
	DayLabel    string    `json:"day_label"`
	TotalVolume float64   `json:"total_volume"`
	Date        time.Time `json:"date"`
}

// Window is an inclusive time range.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Windows holds the three comparison ranges relative to one instant.
type Windows struct {
	Today    Window
	WeekAgo  Window
	MonthAgo Window
}

// ComparisonWindows computes the comparison ranges for now:
//
//	Today    [start of today, now]
//	WeekAgo  [start of today-7d, start of today)
//	MonthAgo [start of today-30d, start of today-8d]
func ComparisonWindows(now time.Time) Windows {
	today := StartOfDay(now)
	return Windows{
		Today:    Window{Start: today, End: now},
		WeekAgo:  Window{Start: AddDays(today, -7), End: today.Add(-time.Nanosecond)},
		MonthAgo: Window{Start: AddDays(today, -30), End: AddDays(today, -8)},
	}
}

// Compare computes the comparison row for one exercise name.
func (ws Windows) Compare(exerciseName string, history []models.Workout) ExerciseComparison {
	return ExerciseComparison{
		ExerciseName: exerciseName,
		Today:        BestVolumeInWindow(exerciseName, history, ws.Today.Start, ws.Today.End),
		WeekAgo:      BestVolumeInWindow(exerciseName, history, ws.WeekAgo.Start, ws.WeekAgo.End),
		MonthAgo:     BestVolumeInWindow(exerciseName, history, ws.MonthAgo.Start, ws.MonthAgo.End),
	}
}

// ComparisonCards builds one card per plan name among the completed records.
// The exercises of a card come from the most recently completed record of
// that name; the window aggregates scan the whole history. Cards are ordered
// by the first appearance of the name in history.
func ComparisonCards(history []models.Workout, now time.Time) []ProgressCard {
	var order []string
	latest := make(map[string]models.Workout)
	for _, w := range history {
		if !w.IsSession() {
			continue
		}
		cur, seen := latest[w.Name]
		if !seen {
			order = append(order, w.Name)
			latest[w.Name] = w
			continue
		}
		if w.CompletedAt.After(*cur.CompletedAt) {
			latest[w.Name] = w
		}
	}

	ws := ComparisonWindows(now)
	cards := make([]ProgressCard, 0, len(order))
	for _, name := range order {
		tmpl := latest[name]
		card := ProgressCard{
			PlanName:  name,
			Exercises: make([]ExerciseComparison, 0, len(tmpl.Exercises)),
		}
		for _, ex := range tmpl.Exercises {
			card.Exercises = append(card.Exercises, ws.Compare(ex.Name, history))
		}
		cards = append(cards, card)
	}
	return cards
}

// WeeklyChartDays is the number of points WeeklyChart returns.
const WeeklyChartDays = 7

// WeeklyChart sums the scores of completed records per calendar day for the
// seven days ending today, oldest first. Days without sessions are present
// with a zero volume.
func WeeklyChart(history []models.Workout, now time.Time) []ChartPoint {
	loc := now.Location()
	today := StartOfDay(now)

	points := make([]ChartPoint, WeeklyChartDays)
	index := make(map[calendarDay]int, WeeklyChartDays)
	for i := range points {
		day := AddDays(today, i-(WeeklyChartDays-1))
		points[i] = ChartPoint{
			DayLabel: models.WeekdayOf(day.Weekday()).Short(),
			Date:     day,
		}
		index[dayOf(day, loc)] = i
	}

	for _, w := range history {
		if !w.IsSession() {
			continue
		}
		if i, ok := index[dayOf(*w.CompletedAt, loc)]; ok {
			points[i].TotalVolume += w.TotalScore
		}
	}
	return points
}

// SessionSummary compares each exercise of w against the history, using the
// same windows as ComparisonCards.
func SessionSummary(w models.Workout, history []models.Workout, now time.Time) []ExerciseComparison {
	ws := ComparisonWindows(now)
	rows := make([]ExerciseComparison, 0, len(w.Exercises))
	for _, ex := range w.Exercises {
		rows = append(rows, ws.Compare(ex.Name, history))
	}
	return rows
}
