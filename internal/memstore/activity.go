package memstore

import (
	"context"

	"github.com/MikeMC777/storefront/internal/activity"
)

type Activity struct{ s *Store }

var _ activity.Repository = (*Activity)(nil)

func (r *Activity) Append(ctx context.Context, e *activity.Entry) error {
	defer r.s.wlock(ctx)()
	e.ID = r.s.st.next("activity_logs")
	e.CreatedAt = r.s.now()
	r.s.st.activity = append(r.s.st.activity, *e)
	return nil
}

func (r *Activity) Recent(ctx context.Context, limit int) ([]activity.Entry, error) {
	defer r.s.rlock(ctx)()
	all := r.s.st.activity
	out := make([]activity.Entry, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}
