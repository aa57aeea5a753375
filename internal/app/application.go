// Package app wires the marketplace services together and manages their
// lifecycle.
package app

import (
	"context"
	"fmt"

	contributionssvc "github.com/tourlink/marketplace/internal/app/services/contributions"
	founderssvc "github.com/tourlink/marketplace/internal/app/services/founders"
	guidessvc "github.com/tourlink/marketplace/internal/app/services/guides"
	payoutssvc "github.com/tourlink/marketplace/internal/app/services/payouts"
	settingssvc "github.com/tourlink/marketplace/internal/app/services/settings"
	"github.com/tourlink/marketplace/internal/app/storage"
	"github.com/tourlink/marketplace/internal/app/storage/memory"
	"github.com/tourlink/marketplace/internal/app/system"
	"github.com/tourlink/marketplace/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Settings      storage.SettingsStore
	Contributions storage.ContributionStore
	Founders      storage.FounderStore
	Scores        storage.ScoreStore
	Payouts       storage.PayoutStore
	Calc          storage.MonthCalcStore
	Audit         storage.AuditStore
	Directory     storage.DirectoryStore
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Settings      *settingssvc.Service
	Contributions *contributionssvc.Service
	Founders      *founderssvc.Service
	Guides        *guidessvc.Service
	Payouts       *payoutssvc.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Settings == nil {
		stores.Settings = mem
	}
	if stores.Contributions == nil {
		stores.Contributions = mem
	}
	if stores.Founders == nil {
		stores.Founders = mem
	}
	if stores.Scores == nil {
		stores.Scores = mem
	}
	if stores.Payouts == nil {
		stores.Payouts = mem
	}
	if stores.Calc == nil {
		stores.Calc = mem
	}
	if stores.Audit == nil {
		stores.Audit = mem
	}
	if stores.Directory == nil {
		stores.Directory = mem
	}

	settingsService := settingssvc.New(stores.Settings, log)
	contributionsService := contributionssvc.New(stores.Contributions, stores.Directory, settingsService, log)
	foundersService := founderssvc.New(stores.Founders, settingsService, log)
	guidesService := guidessvc.New(stores.Directory, log)
	payoutsService := payoutssvc.New(payoutssvc.Deps{
		Contributions: stores.Contributions,
		Founders:      stores.Founders,
		Scores:        stores.Scores,
		Payouts:       stores.Payouts,
		Calc:          stores.Calc,
		Audit:         stores.Audit,
		Directory:     stores.Directory,
		Settings:      settingsService,
	}, log)

	return &Application{
		manager:       system.NewManager(),
		log:           log,
		Settings:      settingsService,
		Contributions: contributionsService,
		Founders:      foundersService,
		Guides:        guidesService,
		Payouts:       payoutsService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	if err := a.manager.Register(service); err != nil {
		return fmt.Errorf("attach %s: %w", service.Name(), err)
	}
	return nil
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
