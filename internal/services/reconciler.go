package services

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/universal-inbox/universal-inbox/internal/config"
	"github.com/universal-inbox/universal-inbox/internal/core"
	"github.com/universal-inbox/universal-inbox/internal/models"
	"github.com/universal-inbox/universal-inbox/internal/store"
)

// SyncService reconciles upstream provider state into the local item, task
// and notification tables, and links tasks into the sink provider.
type SyncService struct {
	store       *store.Store
	connections *IntegrationConnectionService
	registry    *core.Registry
	projects    core.Cache[string]
	recorder    core.Recorder
	cfg         *config.Config

	// projectGeneration is folded into project cache keys and bumped on
	// every project creation, so stale "project absent" entries die
	// immediately instead of waiting out their TTL.
	projectGeneration atomic.Uint64
}

func NewSyncService(
	s *store.Store,
	connections *IntegrationConnectionService,
	registry *core.Registry,
	projects core.Cache[string],
	recorder core.Recorder,
	cfg *config.Config,
) *SyncService {
	return &SyncService{
		store:       s,
		connections: connections,
		registry:    registry,
		projects:    projects,
		recorder:    recorder,
		cfg:         cfg,
	}
}

// SyncResult summarizes one completed sync pass.
type SyncResult struct {
	Provider     models.ProviderKind
	ItemsFetched int
	ItemsChanged int
	TasksChanged int
	Notified     int
	StaleSwept   int
}

// SyncProvider runs one reconciliation pass for a user's connection to the
// given provider.
//
// Credential resolution and the sync-start stamp happen outside the
// transaction so they are durable no matter how the pass ends. The item
// cascade and staleness sweep run inside one transaction: a recoverable
// failure commits whatever progress was made and records the failure
// message on the connection, an unexpected failure rolls everything back.
func (s *SyncService) SyncProvider(
	ctx context.Context,
	userID string,
	kind models.ProviderKind,
) (*SyncResult, error) {
	started := time.Now()
	result, err := s.syncProvider(ctx, userID, kind)
	if s.recorder != nil {
		s.recorder.RecordSyncRun(kind.String(), resultLabel(err), time.Since(started))
	}
	return result, err
}

func (s *SyncService) syncProvider(
	ctx context.Context,
	userID string,
	kind models.ProviderKind,
) (*SyncResult, error) {
	adapter, err := s.registry.Get(kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	accessToken, conn, err := s.connections.ResolveAccessToken(ctx, userID, kind)
	if err != nil {
		return nil, err
	}

	// Nothing to reconcile when both sync toggles are off.
	if !conn.Config.SyncNotificationsEnabled && !conn.Config.SyncTasksEnabled {
		return &SyncResult{Provider: kind}, nil
	}

	if err := s.connections.StartSync(conn.ID, time.Now()); err != nil {
		return nil, err
	}

	result := &SyncResult{Provider: kind}
	var syncErr error
	txErr := s.store.Transaction(func(tx *store.Store) error {
		syncErr = s.syncItems(ctx, tx, adapter, accessToken, conn, result)
		if syncErr != nil && IsRecoverable(syncErr) {
			// Commit partial progress; the failure is surfaced on the
			// connection and the job retried later.
			return nil
		}
		return syncErr
	})
	if txErr != nil {
		return nil, txErr
	}
	if syncErr != nil {
		if err := s.connections.ErrorSync(conn.ID, syncErr.Error()); err != nil {
			return nil, err
		}
		return result, syncErr
	}

	if err := s.connections.ResetErrorSync(conn.ID); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SyncService) syncItems(
	ctx context.Context,
	tx *store.Store,
	adapter core.ProviderAdapter,
	accessToken string,
	conn *models.IntegrationConnection,
	result *SyncResult,
) error {
	records, err := adapter.FetchItems(ctx, accessToken, conn.UserID)
	if err != nil {
		return recoverable(err)
	}
	result.ItemsFetched = len(records)

	fetchedSourceIDs := make([]string, 0, len(records))
	for _, record := range records {
		fetchedSourceIDs = append(fetchedSourceIDs, record.SourceID())

		item := record.ToThirdPartyItem(conn.UserID, conn.ID)
		cascade, err := s.syncItem(tx, conn, item)
		if err != nil {
			// A single malformed record must not sink the whole pass.
			log.Printf("sync %s: skipping item %s: %v", conn.ProviderKind, record.SourceID(), err)
			continue
		}
		countCascade(result, cascade)
	}

	if adapter.IsSyncIncremental() {
		return nil
	}
	return s.sweepStaleItems(tx, conn, fetchedSourceIDs, result)
}

// sweepStaleItems marks items that disappeared from a full-state fetch as
// done and pushes the change through the regular cascade, so a derived task
// completes and a derived notification clears. Already-settled items (done
// task, deleted notification) are left alone.
func (s *SyncService) sweepStaleItems(
	tx *store.Store,
	conn *models.IntegrationConnection,
	fetchedSourceIDs []string,
	result *SyncResult,
) error {
	kinds := models.ItemKindsForProvider(conn.ProviderKind)
	stale, err := tx.GetStaleItems(conn.UserID, kinds, fetchedSourceIDs)
	if err != nil {
		return err
	}

	now := time.Now()
	swept := 0
	for i := range stale {
		done := stale[i].MarkedAsDone(now)
		cascade, err := s.syncItem(tx, conn, done)
		if err != nil {
			// Same isolation as the fetch loop: one item must not sink the
			// rest of the sweep.
			log.Printf("sync %s: skipping stale item %s: %v", conn.ProviderKind, stale[i].SourceID, err)
			continue
		}
		countCascade(result, cascade)
		result.StaleSwept++
		swept++
	}

	if s.recorder != nil && swept > 0 {
		s.recorder.RecordStaleSweep(conn.ProviderKind.String(), swept)
	}
	return nil
}

func countCascade(result *SyncResult, cascade *ItemCreationResult) {
	if cascade == nil {
		return
	}
	if cascade.Item != nil {
		result.ItemsChanged++
	}
	if cascade.Task != nil {
		result.TasksChanged++
	}
	if cascade.Notification != nil {
		result.Notified++
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsRecoverable(err):
		return "recoverable"
	default:
		return "error"
	}
}
