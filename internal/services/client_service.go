package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"honorarios/internal/core"
	applog "honorarios/internal/log"
	"honorarios/internal/ports"
)

// ClientService validates and persists client records.
type ClientService struct {
	store    ports.Store
	retry    RetryPolicy
	notifier ChangeNotifier
	logger   *applog.Logger
	now      func() time.Time
}

func NewClientService(store ports.Store, retry RetryPolicy, notifier ChangeNotifier, logger *applog.Logger) *ClientService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &ClientService{
		store:    store,
		retry:    retry,
		notifier: notifierOrNop(notifier),
		logger:   logger.WithComponent(applog.ComponentClients),
		now:      time.Now,
	}
}

// DeleteResult reports what a client deletion left behind.
type DeleteResult struct {
	Code                 string
	LeftoverInstallments int
}

func (s *ClientService) NextCode(ctx context.Context) (string, error) {
	return retryValue(ctx, s.retry, "next client code", s.store.NextClientCode)
}

// Create normalizes and stores c under the next sequential code; any code set
// by the caller is replaced. A zero registration date becomes today.
func (s *ClientService) Create(ctx context.Context, c core.Client) (core.Client, error) {
	c = c.Normalize()
	code, err := s.NextCode(ctx)
	if err != nil {
		return core.Client{}, err
	}
	c.Code = code
	if c.RegisteredOn.IsZero() {
		c.RegisteredOn = core.DateOf(s.now())
	}
	if err := c.Validate(); err != nil {
		return core.Client{}, fmt.Errorf("validate client: %w", err)
	}

	err = s.retry.Do(ctx, "create client", func(ctx context.Context) error {
		return s.store.CreateClient(ctx, c)
	})
	if err != nil {
		return core.Client{}, err
	}

	s.logger.InfoContext(ctx, "Client created",
		applog.FieldOperation, applog.OpCreate,
		applog.FieldClientCode, c.Code)
	s.notifier.Changed(ctx, "client created")
	return c, nil
}

// Update replaces every field but the code.
func (s *ClientService) Update(ctx context.Context, c core.Client) (core.Client, error) {
	c = c.Normalize()
	if err := c.Validate(); err != nil {
		return core.Client{}, fmt.Errorf("validate client: %w", err)
	}
	err := s.retry.Do(ctx, "update client", func(ctx context.Context) error {
		return s.store.UpdateClient(ctx, c)
	})
	if err != nil {
		return core.Client{}, err
	}

	s.logger.InfoContext(ctx, "Client updated",
		applog.FieldOperation, applog.OpUpdate,
		applog.FieldClientCode, c.Code)
	s.notifier.Changed(ctx, "client updated")
	return c, nil
}

// Delete removes the client record only. Its installments stay in the store
// and are counted in the result.
func (s *ClientService) Delete(ctx context.Context, code string) (DeleteResult, error) {
	err := s.retry.Do(ctx, "delete client", func(ctx context.Context) error {
		return s.store.DeleteClient(ctx, code)
	})
	if err != nil {
		return DeleteResult{}, err
	}
	s.notifier.Changed(ctx, "client deleted")

	res := DeleteResult{Code: code}
	left, err := retryValue(ctx, s.retry, "list installments", func(ctx context.Context) ([]core.Installment, error) {
		return s.store.ListInstallments(ctx, code)
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Could not count installments of deleted client",
			applog.FieldClientCode, code, applog.FieldError, err.Error())
		return res, nil
	}
	res.LeftoverInstallments = len(left)
	if res.LeftoverInstallments > 0 {
		s.logger.WarnContext(ctx, "Client deleted with installments left behind",
			applog.FieldClientCode, code,
			applog.FieldCount, res.LeftoverInstallments)
	} else {
		s.logger.InfoContext(ctx, "Client deleted", applog.FieldClientCode, code)
	}
	return res, nil
}

func (s *ClientService) Get(ctx context.Context, code string) (core.Client, error) {
	return retryValue(ctx, s.retry, "get client", func(ctx context.Context) (core.Client, error) {
		return s.store.GetClient(ctx, code)
	})
}

func (s *ClientService) List(ctx context.Context) ([]core.Client, error) {
	return retryValue(ctx, s.retry, "list clients", s.store.ListClients)
}

// Search matches term against client names, ignoring case. An empty term
// lists every client.
func (s *ClientService) Search(ctx context.Context, term string) ([]core.Client, error) {
	if strings.TrimSpace(term) == "" {
		return s.List(ctx)
	}
	return retryValue(ctx, s.retry, "search clients", func(ctx context.Context) ([]core.Client, error) {
		return s.store.SearchClients(ctx, term)
	})
}

// IsValidationError reports whether err came from input validation.
func IsValidationError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidDay, core.ErrInvalidMonth, core.ErrInvalidDate, core.ErrInvalidAmount,
		core.ErrEmptyName, core.ErrEmptyCode, core.ErrInvalidPhone, core.ErrInvalidTaxID,
		core.ErrInvalidCount, core.ErrInvalidNumber, core.ErrExceedsContract, core.ErrScheduleExists,
		ErrInvalidInput,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ErrInvalidInput wraps validation failures that have no core sentinel.
var ErrInvalidInput = errors.New("invalid input")
