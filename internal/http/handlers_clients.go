package http

import (
	"net/http"
	"strings"

	"honorarios/internal/core"
	applog "honorarios/internal/log"
)

// clientFromRequest reads the editable client fields. Code is never read from
// the body: it comes from the path on update and is assigned on create.
func clientFromRequest(r *http.Request) (core.Client, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return core.Client{}, err
	}

	fee, err := p.Amount("contracted_fee")
	if err != nil {
		return core.Client{}, err
	}
	registered, err := p.Date("registered_on")
	if err != nil {
		return core.Client{}, err
	}
	return core.Client{
		Name:          p.Get("name"),
		Phone:         p.Get("phone"),
		TaxID:         p.Get("tax_id"),
		Secret:        p.Get("secret"),
		CaseType:      p.Get("case_type"),
		ContractedFee: fee,
		CaseSummary:   p.Get("case_summary"),
		RegisteredOn:  registered,
	}, nil
}

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.deps.Clients.Search(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		fail(w, r, applog.OpSearch, err)
		return
	}
	NewResponse().JSON(clientsOf(clients)).Write(w)
}

func (s *Server) handleNextCode(w http.ResponseWriter, r *http.Request) {
	code, err := s.deps.Clients.NextCode(r.Context())
	if err != nil {
		fail(w, r, applog.OpRead, err)
		return
	}
	NewResponse().JSON(map[string]string{"code": code}).Write(w)
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	start := s.now()
	c, err := clientFromRequest(r)
	if err != nil {
		if rb := parseFailure(err); rb != nil {
			rb.Write(w)
			return
		}
		fail(w, r, applog.OpParse, err)
		return
	}

	created, err := s.deps.Clients.Create(r.Context(), c)
	if err != nil {
		fail(w, r, applog.OpCreate, err)
		return
	}
	s.withSnapshotStatus(NewResponse(), start).
		Status(http.StatusCreated).
		Header("Location", "/clients/"+created.Code).
		JSON(clientOf(created, true)).
		Write(w)
}

// handleGetClient returns the client with its schedule, totals and the
// mismatch warning.
func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	status, err := s.deps.Ledger.Balance(r.Context(), r.PathValue("code"))
	if err != nil {
		fail(w, r, applog.OpRead, err)
		return
	}
	NewResponse().JSON(ledgerOf(status)).Write(w)
}

func (s *Server) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	start := s.now()
	c, err := clientFromRequest(r)
	if err != nil {
		if rb := parseFailure(err); rb != nil {
			rb.Write(w)
			return
		}
		fail(w, r, applog.OpParse, err)
		return
	}
	c.Code = r.PathValue("code")

	updated, err := s.deps.Clients.Update(r.Context(), c)
	if err != nil {
		fail(w, r, applog.OpUpdate, err)
		return
	}
	s.withSnapshotStatus(NewResponse(), start).JSON(clientOf(updated, true)).Write(w)
}

func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	start := s.now()
	res, err := s.deps.Clients.Delete(r.Context(), r.PathValue("code"))
	if err != nil {
		fail(w, r, applog.OpDelete, err)
		return
	}

	body := map[string]any{
		"code":                  res.Code,
		"leftover_installments": res.LeftoverInstallments,
	}
	if res.LeftoverInstallments > 0 {
		body["warning"] = "client installments were kept; remove them with DELETE /clients/" + res.Code + "/installments"
	}
	s.withSnapshotStatus(NewResponse(), start).JSON(body).Write(w)
}

// parseFailure turns malformed bodies into 400; field errors go through the
// regular mapping.
func parseFailure(err error) *ResponseBuilder {
	rb := errorResponse(err)
	if rb.statusCode == http.StatusInternalServerError {
		return BadRequestError("malformed request body")
	}
	return nil
}
