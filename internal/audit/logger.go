package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// DefaultWriteTimeout bounds one durable write when none is configured.
const DefaultWriteTimeout = 2 * time.Second

// Store is the append-only audit sink. It exposes no update or delete.
type Store interface {
	Append(ctx context.Context, e Event) (Event, error)
}

// Logger records audit events durably. Record returns only after the store
// acknowledged the write.
type Logger struct {
	store    Store
	validate *validator.Validate
	timeout  time.Duration
	now      func() time.Time
}

// NewLogger constructs a Logger. A non-positive timeout selects
// DefaultWriteTimeout.
func NewLogger(store Store, timeout time.Duration) *Logger {
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	return &Logger{
		store:    store,
		validate: validator.New(),
		timeout:  timeout,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Record validates and persists e. The write is detached from the caller's
// cancellation: once started it runs to completion or to the write timeout.
func (l *Logger) Record(ctx context.Context, e Event) error {
	if l == nil || l.store == nil {
		return fmt.Errorf("%w: logger not initialised", ErrWriteFailed)
	}
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = l.now()
	}
	e.FieldsAccessed = append([]string{}, e.FieldsAccessed...)
	if err := l.validate.Struct(e); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()
	if _, err := l.store.Append(writeCtx, e); err != nil {
		if errors.Is(err, ErrDuplicateEvent) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}
