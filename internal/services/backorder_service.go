package services

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"yoco/stocksync/internal/apperrors"
	"yoco/stocksync/internal/common"
	"yoco/stocksync/internal/constants"
	"yoco/stocksync/internal/models/entities"
	"yoco/stocksync/internal/models/gorm"
)

// StockReconciledEvent is published whenever reconcile changes an entry
type StockReconciledEvent struct {
	EntryID    int64               `json:"entry_id"`
	ParentID   int64               `json:"parent_id,omitempty"`
	Previous   entities.StockState `json:"previous"`
	Current    entities.StockState `json:"current"`
	SupplierID int64               `json:"supplier_id,omitempty"` // supplier whose fact made the entry sellable
}

// BackorderService decides the sellable state of catalog entries from their
// own stock and the supplier stock facts.
//
// Writes go straight to the catalog store; the catalog's own stock change
// hooks do not run for these updates.
type BackorderService struct {
	catalog          CatalogStore
	stock            StockStore
	configs          SupplierConfigStore
	events           common.EventPublisher
	fallbackDelivery string
	logger           *zap.SugaredLogger
}

// NewBackorderService creates a decision engine. fallbackDelivery is shown
// for sellable entries that never had a default delivery text captured.
func NewBackorderService(
	catalog CatalogStore,
	stock StockStore,
	configs SupplierConfigStore,
	events common.EventPublisher,
	fallbackDelivery string,
	logger *zap.SugaredLogger,
) *BackorderService {
	if fallbackDelivery == "" {
		fallbackDelivery = constants.DefaultFallbackDelivery
	}
	return &BackorderService{
		catalog:          catalog,
		stock:            stock,
		configs:          configs,
		events:           events,
		fallbackDelivery: fallbackDelivery,
		logger:           logger.Named("BackorderService"),
	}
}

// Reconcile recomputes backorders, stock status and delivery text for one
// entry and reports whether anything was written.
func (s *BackorderService) Reconcile(ctx context.Context, entryID int64) (bool, error) {
	entry, err := s.catalog.GetEntry(ctx, entryID)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, errors.Wrapf(apperrors.ErrEntryNotFound, "entry %d", entryID)
	}
	if !entry.SyncEnabled {
		return false, nil
	}

	own, err := s.catalog.GetOwnStock(ctx, entryID)
	if err != nil {
		return false, err
	}

	var (
		target     entities.StockState
		supplierID int64
	)
	if own.Sellable() {
		target = entities.StockState{
			Backorders:   constants.BackordersNo,
			StockStatus:  constants.StockInStock,
			DeliveryText: s.defaultDelivery(entry),
		}
	} else {
		fact, err := s.firstAvailable(ctx, entryID)
		if err != nil {
			return false, err
		}
		if fact != nil {
			supplierID = fact.SupplierID
			text, err := s.supplierDelivery(ctx, fact.SupplierID, entry.DeliveryText)
			if err != nil {
				return false, err
			}
			target = entities.StockState{
				Backorders:   constants.BackordersNotify,
				StockStatus:  constants.StockOnBackorder,
				DeliveryText: text,
			}
		} else {
			target = entities.StockState{
				Backorders:   constants.BackordersNo,
				StockStatus:  constants.StockOutOfStock,
				DeliveryText: entry.DeliveryText,
			}
		}
	}

	previous := entry.State()
	changed := target != previous
	if changed {
		if err := s.catalog.SetStockState(ctx, entryID, target); err != nil {
			return false, err
		}
		s.logger.Debugw("Stock state updated",
			"entry_id", entryID,
			"backorders", target.Backorders,
			"stock_status", target.StockStatus,
		)
	}

	if target.StockStatus == constants.StockOnBackorder && entry.ParentID != 0 {
		if err := s.promoteParent(ctx, entry.ParentID, entryID, target); err != nil {
			return changed, err
		}
	}

	if changed {
		s.publish(ctx, StockReconciledEvent{
			EntryID:    entryID,
			ParentID:   entry.ParentID,
			Previous:   previous,
			Current:    target,
			SupplierID: supplierID,
		})
	}
	return changed, nil
}

// EnableSync turns supplier sync on for an entry, and for the variations of
// a variable parent. The current delivery text, or the fallback text when it
// is empty, is captured as the default the first time only.
func (s *BackorderService) EnableSync(ctx context.Context, entryID int64) error {
	targets, err := s.withChildren(ctx, entryID)
	if err != nil {
		return err
	}
	for _, e := range targets {
		if err := s.catalog.SetSyncEnabled(ctx, e.ID, true); err != nil {
			return err
		}
		text := e.DeliveryText
		if strings.TrimSpace(text) == "" {
			text = s.fallbackDelivery
		}
		captured, err := s.catalog.CaptureDefaultDelivery(ctx, e.ID, text)
		if err != nil {
			return err
		}
		if captured {
			s.logger.Debugw("Default delivery text captured", "entry_id", e.ID)
		}
	}
	return nil
}

// DisableSync turns supplier sync off and puts the entry back to a plain
// in-stock state with its default delivery text.
func (s *BackorderService) DisableSync(ctx context.Context, entryID int64) error {
	targets, err := s.withChildren(ctx, entryID)
	if err != nil {
		return err
	}
	for _, e := range targets {
		if err := s.catalog.SetSyncEnabled(ctx, e.ID, false); err != nil {
			return err
		}
		state := entities.StockState{
			Backorders:   constants.BackordersNo,
			StockStatus:  constants.StockInStock,
			DeliveryText: s.defaultDelivery(&e),
		}
		if err := s.catalog.SetStockState(ctx, e.ID, state); err != nil {
			return err
		}
	}
	return nil
}

func (s *BackorderService) withChildren(ctx context.Context, entryID int64) ([]entities.CatalogEntry, error) {
	entry, err := s.catalog.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, errors.Wrapf(apperrors.ErrEntryNotFound, "entry %d", entryID)
	}
	targets := []entities.CatalogEntry{*entry}
	if entry.Kind == constants.EntryVariable {
		children, err := s.catalog.GetChildren(ctx, entryID)
		if err != nil {
			return nil, err
		}
		targets = append(targets, children...)
	}
	return targets, nil
}

func (s *BackorderService) firstAvailable(ctx context.Context, entryID int64) (*gorm.SupplierStock, error) {
	facts, err := s.stock.FactsFor(ctx, entryID)
	if err != nil {
		return nil, err
	}
	for i := range facts {
		if facts[i].IsAvailable {
			return &facts[i], nil
		}
	}
	return nil, nil
}

// supplierDelivery returns the supplier's delivery text, or current when the
// supplier has none configured
func (s *BackorderService) supplierDelivery(ctx context.Context, supplierID int64, current string) (string, error) {
	cfg, err := s.configs.GetFeedConfig(ctx, supplierID)
	if err != nil {
		return "", err
	}
	if cfg == nil || strings.TrimSpace(cfg.DefaultDeliveryTime) == "" {
		return current, nil
	}
	return cfg.DefaultDeliveryTime, nil
}

func (s *BackorderService) defaultDelivery(entry *entities.CatalogEntry) string {
	if entry.DefaultDeliveryText != "" {
		return entry.DefaultDeliveryText
	}
	return s.fallbackDelivery
}

// promoteParent moves an out-of-stock parent to backorder once one of its
// variations is sellable or on backorder. Parents are never downgraded here.
func (s *BackorderService) promoteParent(ctx context.Context, parentID, childID int64, childState entities.StockState) error {
	parent, err := s.catalog.GetEntry(ctx, parentID)
	if err != nil || parent == nil {
		return err
	}
	if parent.StockStatus != constants.StockOutOfStock {
		return nil
	}

	children, err := s.catalog.GetChildren(ctx, parentID)
	if err != nil {
		return err
	}
	promote := false
	for _, c := range children {
		state := c.State()
		if c.ID == childID {
			state = childState
		}
		if state.StockStatus == constants.StockOnBackorder ||
			state.StockStatus == constants.StockInStock ||
			state.Backorders == constants.BackordersNotify {
			promote = true
			break
		}
	}
	if !promote {
		return nil
	}

	previous := parent.State()
	next := previous
	next.StockStatus = constants.StockOnBackorder
	if err := s.catalog.SetStockState(ctx, parentID, next); err != nil {
		return err
	}
	s.logger.Infow("Parent promoted to backorder", "parent_id", parentID, "child_id", childID)
	s.publish(ctx, StockReconciledEvent{EntryID: parentID, Previous: previous, Current: next})
	return nil
}

func (s *BackorderService) publish(ctx context.Context, event StockReconciledEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, constants.EventStockReconciled, event); err != nil {
		s.logger.Warnw("Failed to publish event", "event", constants.EventStockReconciled, "error", err)
	}
}
