package repository

import "context"

// Notifier announces the end of a run with the number of stored records.
type Notifier interface {
	Notify(ctx context.Context, recordCount int) error
}
