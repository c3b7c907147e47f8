package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/claude/nextrep/internal/analytics"
	"github.com/claude/nextrep/internal/models"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleAlphaImport(w http.ResponseWriter, r *http.Request) {
	result, err := s.alpha.Ingest(r.Context(), r.Body)
	if err != nil {
		s.log.Error("alpha import error", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	st, err := s.pipe.Current(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st.Plans)
}

func (s *Server) handleStreak(w http.ResponseWriter, r *http.Request) {
	st, err := s.pipe.Current(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"streak": st.Streak})
}

func (s *Server) handleCards(w http.ResponseWriter, r *http.Request) {
	st, err := s.pipe.Current(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st.Cards)
}

func (s *Server) handleWeekly(w http.ResponseWriter, r *http.Request) {
	st, err := s.pipe.Current(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st.Weekly)
}

func (s *Server) handleBestVolume(w http.ResponseWriter, r *http.Request) {
	exercise := r.URL.Query().Get("exercise")
	if exercise == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exercise parameter required"})
		return
	}

	start, end, err := parseTimeRange(r, s.pipe.Now())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	st, err := s.pipe.Current(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BestVolume{
		Exercise:   exercise,
		Start:      start,
		End:        end,
		BestVolume: analytics.BestVolumeInWindow(exercise, st.Records, start, end),
	})
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	st, err := s.pipe.Current(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	plan, ok := analytics.PlanForToday(st.Records, s.pipe.Now())
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "rest day"})
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.pipe.Summary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSavePlan(w http.ResponseWriter, r *http.Request) {
	var draft models.PlanDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	plan, err := s.pipe.AddOrUpdatePlan(r.Context(), draft)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, plan)
}

func (s *Server) handleRemovePlan(w http.ResponseWriter, r *http.Request) {
	if err := s.pipe.RemovePlan(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleUpdateSet(w http.ResponseWriter, r *http.Request) {
	var in models.SetInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	err := s.pipe.UpdateSetInput(r.Context(),
		chi.URLParam(r, "id"), chi.URLParam(r, "exerciseID"), chi.URLParam(r, "setID"), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleToggleExercise(w http.ResponseWriter, r *http.Request) {
	err := s.pipe.ToggleExerciseCompletion(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "exerciseID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	session, err := s.pipe.FinishWorkout(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, session)
}

// writeError maps domain errors to status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":    verr.Reason,
			"exercise": verr.Exercise,
		})
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, models.ErrAlreadyCompleted), errors.Is(err, models.ErrExercisesIncomplete):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		s.log.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

// BestVolume is the response of /api/v1/progress/best.
type BestVolume struct {
	Exercise   string    `json:"exercise"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	BestVolume float64   `json:"best_volume"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// parseTimeRange reads start/end as RFC 3339 or plain dates. Without start
// the range is the last 7 days; a plain end date covers that whole day.
func parseTimeRange(r *http.Request, now time.Time) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")
	loc := now.Location()

	if endStr == "" {
		end = now
	} else {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			end, err = time.ParseInLocation("2006-01-02", endStr, loc)
			if err != nil {
				return time.Time{}, time.Time{}, err
			}
			end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
	}

	if startStr == "" {
		start = end.AddDate(0, 0, -7)
		return
	}
	start, err = time.Parse(time.RFC3339, startStr)
	if err != nil {
		start, err = time.ParseInLocation("2006-01-02", startStr, loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return
}
