package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeInternal logs the real failure for operators and, outside
// development, answers with a generic message only.
func writeInternal(logger *slog.Logger, w http.ResponseWriter, msg string, err error, exposeDetail bool) {
	logger.Error(msg, "error", err)
	if exposeDetail && err != nil {
		writeError(w, http.StatusInternalServerError, msg+": "+err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// parseDate validates a calendar date in "YYYY-MM-DD" form and returns
// it normalized.
func parseDate(s string) (string, bool) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

// combineDateTime builds the UTC instant for a calendar date plus a
// wall-clock "HH:mm". The server's local timezone never participates.
func combineDateTime(date, clock string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02T15:04", date+"T"+clock)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
