package http

import (
	"net/http"

	"moneytracker/internal/state"
)

type statisticsView struct {
	State state.StatisticsState
	Chart PieChart
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	st := s.deps.Statistics.State()
	view := statisticsView{State: st, Chart: buildPieChart(st.Statistics.ByCategory)}

	name := "statistics_page"
	if isHTMX(r) && r.Header.Get("HX-Target") == "statistics" {
		name = "statistics_body"
	}
	s.render(w, r, http.StatusOK, name, view)
}
