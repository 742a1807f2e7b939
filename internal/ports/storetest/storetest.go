// Package storetest holds behaviour checks shared by every ports.Store
// implementation.
package storetest

import (
	"context"
	"errors"
	"testing"

	"honorarios/internal/core"
	"honorarios/internal/ports"
)

func client(code, name string, feeCents int64) core.Client {
	return core.Client{
		Code:          code,
		Name:          name,
		Phone:         "(11) 98765-4321",
		TaxID:         "123.456.789-01",
		Secret:        "SENHA",
		CaseType:      "TRABALHISTA",
		ContractedFee: core.Money{Cents: feeCents},
		CaseSummary:   "RECLAMACAO",
		RegisteredOn:  core.NewDate(2024, 1, 10),
	}
}

func installment(code string, number int, cents int64, due core.Date) core.Installment {
	return core.Installment{
		ClientCode: code,
		Number:     number,
		Amount:     core.Money{Cents: cents},
		DueDate:    due,
	}
}

// Run exercises newStore with the full store contract. newStore must return
// an empty store on every call.
func Run(t *testing.T, newStore func(t *testing.T) ports.Store) {
	t.Run("next code on empty store", func(t *testing.T) {
		s := newStore(t)
		code, err := s.NextClientCode(context.Background())
		if err != nil {
			t.Fatalf("NextClientCode: %v", err)
		}
		if code != "0001" {
			t.Errorf("code = %q, want 0001", code)
		}
	})

	t.Run("client crud", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		c := client("0001", "MARIA SILVA", 120000)
		if err := s.CreateClient(ctx, c); err != nil {
			t.Fatalf("CreateClient: %v", err)
		}
		if err := s.CreateClient(ctx, c); !errors.Is(err, core.ErrDuplicateClient) {
			t.Errorf("duplicate create err = %v, want ErrDuplicateClient", err)
		}

		code, err := s.NextClientCode(ctx)
		if err != nil || code != "0002" {
			t.Errorf("NextClientCode = %q, %v; want 0002", code, err)
		}

		got, err := s.GetClient(ctx, "0001")
		if err != nil {
			t.Fatalf("GetClient: %v", err)
		}
		if got != c {
			t.Errorf("GetClient = %+v, want %+v", got, c)
		}

		c.Name = "MARIA SOUZA"
		if err := s.UpdateClient(ctx, c); err != nil {
			t.Fatalf("UpdateClient: %v", err)
		}
		got, _ = s.GetClient(ctx, "0001")
		if got.Name != "MARIA SOUZA" {
			t.Errorf("name after update = %q", got.Name)
		}

		if err := s.UpdateClient(ctx, client("0099", "X", 0)); !errors.Is(err, core.ErrClientNotFound) {
			t.Errorf("update missing err = %v", err)
		}
		if err := s.DeleteClient(ctx, "0001"); err != nil {
			t.Fatalf("DeleteClient: %v", err)
		}
		if _, err := s.GetClient(ctx, "0001"); !errors.Is(err, core.ErrClientNotFound) {
			t.Errorf("get deleted err = %v", err)
		}
		if err := s.DeleteClient(ctx, "0001"); !errors.Is(err, core.ErrClientNotFound) {
			t.Errorf("delete twice err = %v", err)
		}
	})

	t.Run("list and search clients", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		for _, c := range []core.Client{
			client("0002", "JOAO PEREIRA", 0),
			client("0001", "MARIA SILVA", 0),
			client("0003", "ANA MARIA COSTA", 0),
		} {
			if err := s.CreateClient(ctx, c); err != nil {
				t.Fatalf("CreateClient: %v", err)
			}
		}

		all, err := s.ListClients(ctx)
		if err != nil {
			t.Fatalf("ListClients: %v", err)
		}
		if len(all) != 3 || all[0].Code != "0001" || all[2].Code != "0003" {
			t.Errorf("ListClients order = %v", codes(all))
		}

		found, err := s.SearchClients(ctx, "maria")
		if err != nil {
			t.Fatalf("SearchClients: %v", err)
		}
		if len(found) != 2 || found[0].Code != "0001" || found[1].Code != "0003" {
			t.Errorf("SearchClients = %v", codes(found))
		}
	})

	t.Run("installments", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		if err := s.CreateClient(ctx, client("0001", "MARIA", 120000)); err != nil {
			t.Fatalf("CreateClient: %v", err)
		}

		day0 := core.NewDate(2024, 3, 1)
		batch := []core.Installment{
			installment("0001", 1, 40000, day0),
			installment("0001", 2, 40000, day0.AddDays(30)),
		}
		if err := s.CreateInstallments(ctx, batch); err != nil {
			t.Fatalf("CreateInstallments: %v", err)
		}

		appended, err := s.AppendInstallment(ctx, installment("0001", 0, 40000, day0.AddDays(60)))
		if err != nil {
			t.Fatalf("AppendInstallment: %v", err)
		}
		if appended.Number != 3 {
			t.Errorf("appended number = %d, want 3", appended.Number)
		}

		list, err := s.ListInstallments(ctx, "0001")
		if err != nil {
			t.Fatalf("ListInstallments: %v", err)
		}
		if len(list) != 3 {
			t.Fatalf("len = %d, want 3", len(list))
		}
		for i, inst := range list {
			if inst.Number != i+1 {
				t.Errorf("list[%d].Number = %d", i, inst.Number)
			}
		}

		paid := list[1]
		paid.Paid = true
		paid.PaymentDate = core.NewDate(2024, 3, 15)
		paid.PaymentMethod = "PIX"
		if err := s.UpdateInstallment(ctx, paid); err != nil {
			t.Fatalf("UpdateInstallment: %v", err)
		}
		got, err := s.GetInstallment(ctx, "0001", 2)
		if err != nil {
			t.Fatalf("GetInstallment: %v", err)
		}
		if got != paid {
			t.Errorf("GetInstallment = %+v, want %+v", got, paid)
		}

		if _, err := s.GetInstallment(ctx, "0001", 9); !errors.Is(err, core.ErrInstallmentNotFound) {
			t.Errorf("get missing err = %v", err)
		}
		if err := s.UpdateInstallment(ctx, installment("0001", 9, 1, day0)); !errors.Is(err, core.ErrInstallmentNotFound) {
			t.Errorf("update missing err = %v", err)
		}
	})

	t.Run("join drops orphans and delete does not cascade", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		due := core.NewDate(2024, 1, 1)
		for _, c := range []core.Client{client("0001", "A", 0), client("0002", "B", 0)} {
			if err := s.CreateClient(ctx, c); err != nil {
				t.Fatalf("CreateClient: %v", err)
			}
		}
		if err := s.CreateInstallments(ctx, []core.Installment{installment("0002", 1, 100, due)}); err != nil {
			t.Fatal(err)
		}
		if err := s.CreateInstallments(ctx, []core.Installment{installment("0001", 1, 200, due)}); err != nil {
			t.Fatal(err)
		}

		all, err := s.ListAllInstallments(ctx)
		if err != nil {
			t.Fatalf("ListAllInstallments: %v", err)
		}
		if len(all) != 2 || all[0].ClientCode != "0002" {
			t.Errorf("insertion order not kept: %+v", all)
		}

		if err := s.DeleteClient(ctx, "0002"); err != nil {
			t.Fatal(err)
		}
		all, _ = s.ListAllInstallments(ctx)
		if len(all) != 2 {
			t.Errorf("installments after client delete = %d, want 2", len(all))
		}

		joined, err := s.ListInstallmentsWithClient(ctx)
		if err != nil {
			t.Fatalf("ListInstallmentsWithClient: %v", err)
		}
		if len(joined) != 1 || joined[0].ClientName != "A" {
			t.Errorf("joined = %+v", joined)
		}

		n, err := s.DeleteClientInstallments(ctx, "0002")
		if err != nil || n != 1 {
			t.Errorf("DeleteClientInstallments = %d, %v", n, err)
		}
		next, err := s.AppendInstallment(ctx, installment("0002", 0, 1, due))
		if err != nil || next.Number != 1 {
			t.Errorf("append after cleanup = %d, %v", next.Number, err)
		}
	})
}

func codes(cs []core.Client) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Code
	}
	return out
}
