package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/claude/nextrep/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultTimeRange returns start/end defaulting to the last 7 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -7)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// --- Tool definitions ---

var toolListPlans = mcp.NewTool("list_plans",
	mcp.WithDescription("List the training plans (workout templates) with their scheduled weekdays, exercises and sets."),
)

var toolGetStreak = mcp.NewTool("get_streak",
	mcp.WithDescription("Current workout streak in days. Scheduled days without a session break it, unscheduled rest days do not."),
)

var toolGetProgressCards = mcp.NewTool("get_progress_cards",
	mcp.WithDescription("Per-plan progress cards: for every exercise, the best set volume (weight × reps) today, in the last 7 days and 8 to 30 days ago."),
)

var toolGetWeeklyChart = mcp.NewTool("get_weekly_chart",
	mcp.WithDescription("Total session score per day for the last 7 days, oldest first. Days without sessions have a zero volume."),
)

var toolGetPlanForToday = mcp.NewTool("get_plan_for_today",
	mcp.WithDescription("The plan scheduled for today, or a rest-day message."),
)

var toolGetSessionSummary = mcp.NewTool("get_session_summary",
	mcp.WithDescription("A workout with each exercise compared against today, last week and last month."),
	mcp.WithString("workout_id", mcp.Required(), mcp.Description("Workout or session ID")),
)

var toolGetBestVolume = mcp.NewTool("get_best_volume",
	mcp.WithDescription("Best single-set volume (weight × reps) of an exercise across completed sessions in a date range."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exact exercise name (e.g. 'Bench Press')")),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 7 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
)

// --- Tool handlers ---

func (h *handlers) listPlans(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	plans, err := h.ds.Plans(ctx)
	if err != nil {
		h.log.Error("mcp list_plans", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(plans)
}

func (h *handlers) getStreak(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	streak, err := h.ds.Streak(ctx)
	if err != nil {
		h.log.Error("mcp get_streak", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(map[string]int{"streak": streak})
}

func (h *handlers) getProgressCards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cards, err := h.ds.Cards(ctx)
	if err != nil {
		h.log.Error("mcp get_progress_cards", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(cards)
}

func (h *handlers) getWeeklyChart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	points, err := h.ds.Weekly(ctx)
	if err != nil {
		h.log.Error("mcp get_weekly_chart", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(points)
}

func (h *handlers) getPlanForToday(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	plan, err := h.ds.Today(ctx)
	if err != nil {
		h.log.Error("mcp get_plan_for_today", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if plan == nil {
		return mcp.NewToolResultText("Rest day: no plan is scheduled for today."), nil
	}
	return jsonResult(plan)
}

func (h *handlers) getSessionSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("workout_id")
	if err != nil {
		return mcp.NewToolResultError("workout_id parameter is required"), nil
	}

	summary, err := h.ds.Summary(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return mcp.NewToolResultError("workout not found: " + id), nil
	}
	if err != nil {
		h.log.Error("mcp get_session_summary", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(summary)
}

func (h *handlers) getBestVolume(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercise, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}

	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	best, err := h.ds.BestVolume(ctx, exercise, start, end)
	if err != nil {
		h.log.Error("mcp get_best_volume", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(map[string]any{
		"exercise":    exercise,
		"start":       start,
		"end":         end,
		"best_volume": best,
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
