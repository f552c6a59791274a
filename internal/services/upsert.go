package services

import "github.com/universal-inbox/universal-inbox/internal/models"

// UpsertStatus is the structural contract shared by every cascade step. It
// wraps the stored value plus a modified marker populated only when the
// write actually changed persisted state. Downstream steps consult
// ModifiedValue, not the presence of the record, to decide whether to
// propagate.
type UpsertStatus[T any] struct {
	// Value is the stored record, whether or not the write changed it.
	Value *T

	// Modified is set only when the write created or changed the record.
	Modified *T
}

func newUpsertStatus[T any](value *T, modified bool) UpsertStatus[T] {
	status := UpsertStatus[T]{Value: value}
	if modified {
		status.Modified = value
	}
	return status
}

// ModifiedValue returns the record when the write changed persisted state,
// nil otherwise.
func (s UpsertStatus[T]) ModifiedValue() *T {
	return s.Modified
}

// UpdateStatus reports whether a mutation actually updated anything, along
// with the resulting record.
type UpdateStatus[T any] struct {
	Updated bool
	Result  *T
}

// ItemCreationResult captures exactly which cascade layers changed for one
// synced item. Each field is nil when its layer's upsert was a no-op or the
// layer was never reached.
type ItemCreationResult struct {
	Item         *models.ThirdPartyItem
	Task         *models.Task
	Notification *models.Notification
}
