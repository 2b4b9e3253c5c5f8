package audit

import (
	"context"
	"fmt"
)

const defaultVerifyBatch = 500

// ChainReader streams the chain in sequence order.
type ChainReader interface {
	ListAfter(ctx context.Context, after int64, limit int) ([]Event, error)
}

// Report summarises one verification run.
type Report struct {
	Checked int64   `json:"checked"`
	Head    int64   `json:"head"`
	Breaks  []Break `json:"breaks"`
}

// Intact reports whether no breaks were found.
func (r Report) Intact() bool {
	return len(r.Breaks) == 0
}

// Verifier walks the whole audit chain and recomputes every hash.
type Verifier struct {
	repo  ChainReader
	batch int
}

// NewVerifier constructs a verifier reading batch events at a time.
func NewVerifier(repo ChainReader, batch int) *Verifier {
	if batch <= 0 {
		batch = defaultVerifyBatch
	}
	return &Verifier{repo: repo, batch: batch}
}

// Verify checks the chain from the first event to the current head.
func (v *Verifier) Verify(ctx context.Context) (Report, error) {
	var (
		report Report
		state  ChainState
	)
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		events, err := v.repo.ListAfter(ctx, state.Sequence, v.batch)
		if err != nil {
			return report, fmt.Errorf("audit: verify after %d: %w", state.Sequence, err)
		}
		if len(events) == 0 {
			break
		}
		var breaks []Break
		breaks, state = VerifyChain(state, events)
		report.Breaks = append(report.Breaks, breaks...)
		report.Checked += int64(len(events))
		if len(events) < v.batch {
			break
		}
	}
	report.Head = state.Sequence
	return report, nil
}
