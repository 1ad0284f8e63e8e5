package services

import (
	"context"
	"errors"
	"sort"

	"gorm.io/gorm"

	"wykonczymy/internal/authz"
	"wykonczymy/internal/database"
	apperrors "wykonczymy/internal/errors"
	"wykonczymy/internal/events"
	"wykonczymy/internal/ledger"
)

// scoped restricts q to the rows s admits.
func scoped(q *gorm.DB, s authz.Scope) *gorm.DB {
	switch {
	case s.Unrestricted:
		return q
	case s.Denied():
		return q.Where("1 = 0")
	}
	return q.Where(s.Column+" = ?", s.Value)
}

// lookupError maps a failed single-row lookup to notFound or a translated
// persistence error.
func lookupError(err error, notFound *apperrors.AppError) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return database.Translate(err)
}

func validationFailed(v ledger.Violations) error {
	return apperrors.WithDetails(apperrors.ErrValidationFailed, v)
}

// publishAfterCommit hands events to p once the unit that produced them has
// committed. It never runs for rolled-back work.
func publishAfterCommit(ctx context.Context, p events.Publisher, evs ...events.Event) {
	if p == nil || len(evs) == 0 {
		return
	}
	p.Publish(context.WithoutCancel(ctx), evs...)
}

// sortedUnique drops empty and duplicate IDs and sorts the rest, giving every
// unit the same lock acquisition order.
func sortedUnique(ids ...string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// optional turns "" into nil.
func optional(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}
