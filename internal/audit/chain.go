package audit

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
)

type chainPayload struct {
	Sequence       int64    `json:"seq"`
	EventID        string   `json:"id"`
	ActorProfileID string   `json:"actor"`
	ResourceType   string   `json:"rtype"`
	ResourceID     string   `json:"rid"`
	Action         Action   `json:"action"`
	FieldsAccessed []string `json:"fields"`
	Justification  string   `json:"why"`
	OccurredAt     string   `json:"at"`
	PrevHash       string   `json:"prev"`
}

// normalizeTime drops precision Postgres timestamptz cannot store, so hashes
// survive a round trip through the database.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// ComputeHash returns the hex BLAKE2b-256 digest of e chained to e.PrevHash.
func ComputeHash(e Event) (string, error) {
	fields := e.FieldsAccessed
	if fields == nil {
		fields = []string{}
	}
	payload, err := json.Marshal(chainPayload{
		Sequence:       e.Sequence,
		EventID:        e.EventID,
		ActorProfileID: e.ActorProfileID,
		ResourceType:   e.ResourceType,
		ResourceID:     e.ResourceID,
		Action:         e.Action,
		FieldsAccessed: fields,
		Justification:  e.Justification,
		OccurredAt:     normalizeTime(e.OccurredAt).Format(time.RFC3339Nano),
		PrevHash:       e.PrevHash,
	})
	if err != nil {
		return "", fmt.Errorf("audit: encode chain payload: %w", err)
	}
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// Seal links e to the previous event and fills Sequence, PrevHash and Hash.
func Seal(e Event, prevSequence int64, prevHash string) (Event, error) {
	e.Sequence = prevSequence + 1
	e.PrevHash = prevHash
	e.OccurredAt = normalizeTime(e.OccurredAt)
	hash, err := ComputeHash(e)
	if err != nil {
		return Event{}, err
	}
	e.Hash = hash
	return e, nil
}

// Break describes one inconsistency found in the chain.
type Break struct {
	Sequence int64  `json:"sequence"`
	EventID  string `json:"event_id"`
	Reason   string `json:"reason"`
}

// ChainState is the position a verification run continues from.
type ChainState struct {
	Sequence int64
	Hash     string
}

// VerifyChain checks events, ordered by sequence, against state and returns
// the breaks found and the state after the last event.
func VerifyChain(state ChainState, events []Event) ([]Break, ChainState) {
	var breaks []Break
	for _, e := range events {
		if e.Sequence != state.Sequence+1 {
			breaks = append(breaks, Break{Sequence: e.Sequence, EventID: e.EventID, Reason: fmt.Sprintf("sequence gap after %d", state.Sequence)})
		}
		if e.PrevHash != state.Hash {
			breaks = append(breaks, Break{Sequence: e.Sequence, EventID: e.EventID, Reason: "previous hash mismatch"})
		}
		expected, err := ComputeHash(e)
		if err != nil || expected != e.Hash {
			breaks = append(breaks, Break{Sequence: e.Sequence, EventID: e.EventID, Reason: "content hash mismatch"})
		}
		state = ChainState{Sequence: e.Sequence, Hash: e.Hash}
	}
	return breaks, state
}
