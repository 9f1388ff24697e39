package audit

import "context"

// Repository solo expone append + lecturas. No hay Update ni Delete a propósito.
type Repository interface {
	Append(ctx context.Context, e Entry) error
	List(ctx context.Context, filter ListFilter) ([]Entry, error)
	CountByRule(ctx context.Context, ruleID string) (int, error)
}
