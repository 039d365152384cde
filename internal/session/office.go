package session

import (
	"context"
	"errors"

	"github.com/oakwood-commons/crmx/internal/model"
	"github.com/oakwood-commons/crmx/pkg/logger"
)

// OfficeSelector is the single writer of the selected office.
type OfficeSelector struct {
	store *Store
}

// NewOfficeSelector returns a selector writing through store.
func NewOfficeSelector(store *Store) *OfficeSelector {
	return &OfficeSelector{store: store}
}

// Select makes office the current office context.
func (o *OfficeSelector) Select(ctx context.Context, office model.Office) (OfficeContext, error) {
	if office.IsZero() {
		return OfficeContext{}, errors.New("office id is required")
	}
	sess, err := o.store.update(ctx, func(s *Session) error {
		s.Office = office
		return nil
	})
	if err != nil {
		return OfficeContext{}, err
	}
	logger.FromContext(ctx).V(1).Info("office selected", "office", office.ID, "name", office.Name)
	return sess.OfficeContext(), nil
}

// Clear forgets the selected office.
func (o *OfficeSelector) Clear(ctx context.Context) error {
	_, err := o.store.update(ctx, func(s *Session) error {
		s.Office = model.Office{}
		return nil
	})
	return err
}

// Current returns the selected office; the zero value when none is set
// or the session cannot be read.
func (o *OfficeSelector) Current() OfficeContext {
	sess, err := o.store.Load()
	if err != nil {
		return OfficeContext{}
	}
	return sess.OfficeContext()
}
