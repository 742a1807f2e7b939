package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"honorarios/internal/core"
	"honorarios/internal/ports"
)

var _ ports.Store = (*Store)(nil)

type installmentKey struct {
	code   string
	number int
}

// Store keeps clients and installments in process memory. Installments keep
// their insertion order, like rowid order in SQLite.
type Store struct {
	mu      sync.Mutex
	clients map[string]core.Client
	order   []installmentKey
	items   map[installmentKey]core.Installment
}

func New() *Store {
	return &Store{
		clients: make(map[string]core.Client),
		items:   make(map[installmentKey]core.Installment),
	}
}

func (s *Store) NextClientCode(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	max := 0
	for code := range s.clients {
		if n, err := strconv.Atoi(code); err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("%04d", max+1), nil
}

func (s *Store) CreateClient(_ context.Context, c core.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c.Code]; ok {
		return fmt.Errorf("create client %s: %w", c.Code, core.ErrDuplicateClient)
	}
	s.clients[c.Code] = c
	return nil
}

func (s *Store) GetClient(_ context.Context, code string) (core.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[code]
	if !ok {
		return core.Client{}, fmt.Errorf("get client %s: %w", code, core.ErrClientNotFound)
	}
	return c, nil
}

func (s *Store) UpdateClient(_ context.Context, c core.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c.Code]; !ok {
		return fmt.Errorf("update client %s: %w", c.Code, core.ErrClientNotFound)
	}
	s.clients[c.Code] = c
	return nil
}

func (s *Store) DeleteClient(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[code]; !ok {
		return fmt.Errorf("delete client %s: %w", code, core.ErrClientNotFound)
	}
	delete(s.clients, code)
	return nil
}

func (s *Store) ListClients(_ context.Context) ([]core.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedClients(func(core.Client) bool { return true }), nil
}

func (s *Store) SearchClients(_ context.Context, term string) ([]core.Client, error) {
	term = strings.ToUpper(strings.TrimSpace(term))
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedClients(func(c core.Client) bool {
		return strings.Contains(strings.ToUpper(c.Name), term)
	}), nil
}

func (s *Store) sortedClients(keep func(core.Client) bool) []core.Client {
	out := make([]core.Client, 0, len(s.clients))
	for _, c := range s.clients {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (s *Store) CreateInstallments(_ context.Context, items []core.Installment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inst := range items {
		if _, ok := s.items[installmentKey{inst.ClientCode, inst.Number}]; ok {
			return fmt.Errorf("create installment %s/%d: already exists", inst.ClientCode, inst.Number)
		}
	}
	for _, inst := range items {
		s.put(inst)
	}
	return nil
}

func (s *Store) AppendInstallment(_ context.Context, inst core.Installment) (core.Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	max := 0
	for k := range s.items {
		if k.code == inst.ClientCode && k.number > max {
			max = k.number
		}
	}
	inst.Number = max + 1
	s.put(inst)
	return inst, nil
}

func (s *Store) put(inst core.Installment) {
	k := installmentKey{inst.ClientCode, inst.Number}
	s.items[k] = inst
	s.order = append(s.order, k)
}

func (s *Store) GetInstallment(_ context.Context, clientCode string, number int) (core.Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.items[installmentKey{clientCode, number}]
	if !ok {
		return core.Installment{}, fmt.Errorf("get installment %s/%d: %w", clientCode, number, core.ErrInstallmentNotFound)
	}
	return inst, nil
}

func (s *Store) UpdateInstallment(_ context.Context, inst core.Installment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := installmentKey{inst.ClientCode, inst.Number}
	if _, ok := s.items[k]; !ok {
		return fmt.Errorf("update installment %s/%d: %w", inst.ClientCode, inst.Number, core.ErrInstallmentNotFound)
	}
	s.items[k] = inst
	return nil
}

func (s *Store) ListInstallments(_ context.Context, clientCode string) ([]core.Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Installment
	for _, k := range s.order {
		if k.code == clientCode {
			out = append(out, s.items[k])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *Store) ListAllInstallments(_ context.Context) ([]core.Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Installment, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.items[k])
	}
	return out, nil
}

func (s *Store) ListInstallmentsWithClient(_ context.Context) ([]core.InstallmentWithClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.InstallmentWithClient, 0, len(s.order))
	for _, k := range s.order {
		c, ok := s.clients[k.code]
		if !ok {
			continue
		}
		out = append(out, core.InstallmentWithClient{Installment: s.items[k], ClientName: c.Name})
	}
	return out, nil
}

func (s *Store) DeleteClientInstallments(_ context.Context, clientCode string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	kept := s.order[:0]
	for _, k := range s.order {
		if k.code == clientCode {
			delete(s.items, k)
			n++
			continue
		}
		kept = append(kept, k)
	}
	s.order = kept
	return n, nil
}
