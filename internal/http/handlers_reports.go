package http

import (
	"bytes"
	"net/http"

	applog "honorarios/internal/log"
	"honorarios/internal/snapshot"
)

const snapshotFileName = "backup_dados.xlsx"

func (s *Server) handleOverdue(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Reports.Overdue(r.Context(), s.now())
	if err != nil {
		fail(w, r, applog.OpRead, err)
		return
	}
	NewResponse().JSON(overdueOf(report)).Write(w)
}

func (s *Server) handlePaid(w http.ResponseWriter, r *http.Request) {
	filter, err := ParsePeriodFilter(r.URL.Query())
	if err != nil {
		fail(w, r, applog.OpParse, err)
		return
	}
	report, err := s.deps.Reports.PaidByPeriod(r.Context(), filter)
	if err != nil {
		fail(w, r, applog.OpRead, err)
		return
	}
	NewResponse().JSON(paidView{Periods: periodsOf(report.Periods), Total: money(report.Total)}).Write(w)
}

func (s *Server) handleReceivable(w http.ResponseWriter, r *http.Request) {
	filter, err := ParsePeriodFilter(r.URL.Query())
	if err != nil {
		fail(w, r, applog.OpParse, err)
		return
	}
	report, err := s.deps.Reports.Receivable(r.Context(), filter)
	if err != nil {
		fail(w, r, applog.OpRead, err)
		return
	}
	NewResponse().JSON(receivableOf(report)).Write(w)
}

func (s *Server) handleSnapshotXLSX(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Snapshots.Build(r.Context())
	if err != nil {
		fail(w, r, applog.OpExport, err)
		return
	}
	var buf bytes.Buffer
	if err := snapshot.Encode(&buf, snap); err != nil {
		fail(w, r, applog.OpExport, err)
		return
	}
	NewResponse().Body(snapshot.ContentTypeXLSX, buf.Bytes()).Attachment(snapshotFileName).Write(w)
}
