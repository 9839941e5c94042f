package httpapi

import (
	"net/http"
)

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	parts := pathTail(r.URL.Path, "/api/dashboard/")
	if len(parts) != 1 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch parts[0] {
	case "stats":
		stats, err := a.dashboard.GetStats(r.Context())
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "dashboard query failed")
			return
		}
		writeData(w, http.StatusOK, stats)
	case "bar":
		points, err := a.dashboard.BarData(r.Context())
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "dashboard query failed")
			return
		}
		writeData(w, http.StatusOK, points)
	case "line":
		points, err := a.dashboard.LineData(r.Context())
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "dashboard query failed")
			return
		}
		writeData(w, http.StatusOK, points)
	case "pie":
		points, err := a.dashboard.PieData(r.Context())
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "dashboard query failed")
			return
		}
		writeData(w, http.StatusOK, points)
	case "recent-customers":
		customers, err := a.dashboard.RecentCustomers(r.Context(), 5)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "dashboard query failed")
			return
		}
		writeData(w, http.StatusOK, customers)
	case "recent-activities":
		entries, err := a.dashboard.RecentActivities(r.Context(), 10)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "dashboard query failed")
			return
		}
		writeData(w, http.StatusOK, entries)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleActivities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	limit, offset, err := parsePage(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	entries, total, err := a.activities.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "activity query failed")
		return
	}
	writeData(w, http.StatusOK, listPage{Items: entries, Total: total, Limit: limit, Offset: offset})
}
