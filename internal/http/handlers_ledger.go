package http

import (
	"net/http"

	"honorarios/internal/core"
	applog "honorarios/internal/log"
	"honorarios/internal/services"
)

func (s *Server) handleListInstallments(w http.ResponseWriter, r *http.Request) {
	items, err := s.deps.Ledger.ListInstallments(r.Context(), r.PathValue("code"))
	if err != nil {
		fail(w, r, applog.OpList, err)
		return
	}
	NewResponse().JSON(installmentsOf(items)).Write(w)
}

// handleSplit generates an even schedule. The contracted fee defaults to the
// client's and the first due date to today.
func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	start := s.now()
	code := r.PathValue("code")

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}
	count, err := p.Int("count")
	if err != nil {
		fail(w, r, applog.OpParse, err)
		return
	}

	var contracted core.Money
	if p.Get("contracted_fee") != "" {
		if contracted, err = p.Amount("contracted_fee"); err != nil {
			fail(w, r, applog.OpParse, err)
			return
		}
	} else {
		client, err := s.deps.Clients.Get(r.Context(), code)
		if err != nil {
			fail(w, r, applog.OpRead, err)
			return
		}
		contracted = client.ContractedFee
	}

	first := start
	if d, err := p.Date("first_due_date"); err != nil {
		fail(w, r, applog.OpParse, err)
		return
	} else if !d.IsZero() {
		first = d.Time
	}

	res, err := s.deps.Ledger.GenerateEvenSplit(r.Context(), code, contracted, count, first)
	if err != nil {
		fail(w, r, applog.OpSplit, err)
		return
	}
	s.withSnapshotStatus(NewResponse(), start).Status(http.StatusCreated).JSON(splitOf(res)).Write(w)
}

func (s *Server) handleAppendInstallment(w http.ResponseWriter, r *http.Request) {
	start := s.now()
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}
	amount, err := p.Amount("amount")
	if err != nil {
		fail(w, r, applog.OpParse, err)
		return
	}
	due, err := p.Date("due_date")
	if err != nil {
		fail(w, r, applog.OpParse, err)
		return
	}
	if due.IsZero() {
		due = core.DateOf(start)
	}

	inst, err := s.deps.Ledger.AppendInstallment(r.Context(), r.PathValue("code"), amount, due, p.Get("deposit_account"))
	if err != nil {
		fail(w, r, applog.OpAppend, err)
		return
	}
	s.withSnapshotStatus(NewResponse(), start).Status(http.StatusCreated).JSON(installmentOf(inst)).Write(w)
}

// handleUpdateInstallment replaces amount and payment details in full.
func (s *Server) handleUpdateInstallment(w http.ResponseWriter, r *http.Request) {
	start := s.now()
	number, err := parseInstallmentNumber(r)
	if err != nil {
		fail(w, r, applog.OpParse, err)
		return
	}

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}
	var upd services.InstallmentUpdate
	if upd.Amount, err = p.Amount("amount"); err != nil {
		fail(w, r, applog.OpParse, err)
		return
	}
	if upd.PaymentDate, err = p.Date("payment_date"); err != nil {
		fail(w, r, applog.OpParse, err)
		return
	}
	if upd.Paid, err = p.Bool("paid"); err != nil {
		fail(w, r, applog.OpParse, err)
		return
	}
	upd.PaymentMethod = p.Get("payment_method")
	upd.DepositAccount = p.Get("deposit_account")

	inst, err := s.deps.Ledger.UpdateInstallment(r.Context(), r.PathValue("code"), number, upd)
	if err != nil {
		fail(w, r, applog.OpUpdate, err)
		return
	}
	s.withSnapshotStatus(NewResponse(), start).JSON(installmentOf(inst)).Write(w)
}

func (s *Server) handleRemoveInstallments(w http.ResponseWriter, r *http.Request) {
	start := s.now()
	n, err := s.deps.Ledger.RemoveClientInstallments(r.Context(), r.PathValue("code"))
	if err != nil {
		fail(w, r, applog.OpDelete, err)
		return
	}
	s.withSnapshotStatus(NewResponse(), start).JSON(map[string]any{"removed": n}).Write(w)
}

func (s *Server) handleOrphans(w http.ResponseWriter, r *http.Request) {
	orphans, err := s.deps.Ledger.Orphans(r.Context())
	if err != nil {
		fail(w, r, applog.OpList, err)
		return
	}
	NewResponse().JSON(installmentsOf(orphans)).Write(w)
}

func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	status, err := s.deps.Ledger.Balance(r.Context(), r.PathValue("code"))
	if err != nil {
		fail(w, r, applog.OpRead, err)
		return
	}
	doc, err := s.deps.Renderer.Render(status.Client, status.Installments)
	if err != nil {
		fail(w, r, applog.OpRender, err)
		return
	}
	NewResponse().Body(doc.ContentType, doc.Bytes).Attachment(doc.FileName).Write(w)
}
