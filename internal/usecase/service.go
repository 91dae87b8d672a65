package usecase

import (
	"event-ticketing/internal/data/repository"
	"event-ticketing/pkg/clock"
	"event-ticketing/pkg/lease"
	"event-ticketing/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Auth       AuthService
	Identity   IdentityProvider
	Ledger     LedgerService
	Seats      ReservationService
	Promotions PromotionService
	Rooms      RoomService
	Catalog    CatalogService
	Bundle     BundleService
	Order      OrderService
	Sweeper    SweeperService
}

// NewService wires every service over one repository set. locker may be nil
// when no redis is configured.
func NewService(repo *repository.Repository, config *utils.Config, clk clock.Clock, notifier Notifier, locker *lease.Locker, log *zap.Logger) *Service {
	inventory := config.Inventory

	deps := Dependencies{
		Ledger:     NewLedgerService(repo.Tier, inventory, clk, log),
		Seats:      NewReservationService(repo, inventory, clk, log),
		Promotions: NewPromotionService(repo, inventory, clk, log),
		Bundles:    NewBundleService(repo, inventory, clk, log),
		Rooms:      NewRoomService(repo, inventory, clk, log),
		Notifier:   notifier,
	}

	return &Service{
		Auth:       NewAuthService(repo.Session, clk, log),
		Identity:   NewSessionIdentityProvider(repo.Session, log),
		Ledger:     deps.Ledger,
		Seats:      deps.Seats,
		Promotions: deps.Promotions,
		Rooms:      deps.Rooms,
		Catalog:    NewCatalogService(repo, inventory, clk, log),
		Bundle:     deps.Bundles,
		Order:      NewOrderService(repo, deps, config, clk, log),
		Sweeper:    NewSweeperService(repo, deps, config, clk, locker, log),
	}
}
