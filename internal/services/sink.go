package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/universal-inbox/universal-inbox/internal/core"
	"github.com/universal-inbox/universal-inbox/internal/models"
	"github.com/universal-inbox/universal-inbox/internal/store"
)

// CreateSinkItemFromTask materializes a task in the configured sink provider
// and links the resulting item back to the task. At most one sink item ever
// gets linked per task: concurrent calls race on a conditional write and the
// losers return the winner's item.
func (s *SyncService) CreateSinkItemFromTask(
	ctx context.Context,
	taskID, userID string,
) (*models.ThirdPartyItem, error) {
	task, err := s.store.GetTaskByID(taskID)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID)
	}
	if err != nil {
		return nil, err
	}
	if task.UserID != userID {
		return nil, fmt.Errorf("%w: task %s does not belong to user", ErrForbidden, taskID)
	}

	// Already linked: pure read, no provider call.
	if task.SinkItemID != nil {
		return s.store.GetItemByID(*task.SinkItemID)
	}

	sinkKind := models.ProviderKind(s.cfg.SinkProviderKind)
	adapter, err := s.registry.Get(sinkKind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	accessToken, sinkConn, err := s.connections.ResolveAccessToken(ctx, userID, sinkKind)
	if err != nil {
		return nil, err
	}

	project := task.Project
	if project == "" {
		project = s.cfg.SinkDefaultProject
	}
	projectID, err := s.resolveProjectID(ctx, adapter, accessToken, project, userID)
	if err != nil {
		return nil, recoverable(err)
	}

	creation := &models.TaskCreation{
		Title:    task.Title,
		Body:     task.Body,
		Project:  projectID,
		Priority: task.Priority,
		DueAt:    task.DueAt,
	}
	record, err := adapter.CreateTask(ctx, accessToken, creation, userID)
	if err != nil {
		return nil, recoverable(err)
	}

	candidate := record.ToThirdPartyItem(userID, sinkConn.ID)
	sinkItem, _, err := s.store.UpsertItem(candidate)
	if err != nil {
		return nil, err
	}

	err = s.store.SetTaskSinkItem(task.ID, sinkItem.ID)
	if errors.Is(err, store.ErrSinkItemAlreadySet) {
		// Lost the race. Return whatever the winner linked; the orphaned
		// provider-side task is left for the next sweep of the sink provider.
		winner, err := s.store.GetTaskByID(task.ID)
		if err != nil {
			return nil, err
		}
		return s.store.GetItemByID(*winner.SinkItemID)
	}
	if err != nil {
		return nil, err
	}
	return sinkItem, nil
}

// resolveProjectID looks up (or creates) the sink-side project for a name.
// The lookup is cached with single-flight semantics so a burst of linkers
// performs one provider round trip, and the cache key carries a generation
// counter bumped on every creation so a cached "absent" result cannot cause
// a second create.
func (s *SyncService) resolveProjectID(
	ctx context.Context,
	adapter core.ProviderAdapter,
	accessToken, name, userID string,
) (string, error) {
	resolver, ok := adapter.(core.ProjectResolver)
	if !ok {
		return "", fmt.Errorf("provider %s cannot resolve projects", adapter.Kind())
	}

	key := s.projectCacheKey(adapter.Kind(), userID, name)
	return s.projects.GetWithFetch(ctx, key, s.cfg.ProjectCacheTTL,
		func(ctx context.Context, _ string) (string, error) {
			id, err := resolver.GetProjectID(ctx, accessToken, name, userID)
			if err != nil {
				return "", err
			}
			if id != "" {
				return id, nil
			}
			id, err = resolver.CreateProject(ctx, accessToken, name, userID)
			if err != nil {
				return "", err
			}
			s.projectGeneration.Add(1)
			return id, nil
		})
}

func (s *SyncService) projectCacheKey(kind models.ProviderKind, userID, name string) string {
	return fmt.Sprintf("project:%s:%s:%s:g%d", kind, userID, name, s.projectGeneration.Load())
}
