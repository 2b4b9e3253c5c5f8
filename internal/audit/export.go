package audit

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"
	"time"
)

var csvHeader = []string{"sequence", "occurred_at", "actor_profile_id", "resource_type", "resource_id", "action", "fields_accessed", "justification", "hash"}

// WriteCSV renders events for compliance export.
func WriteCSV(events []Event) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, e := range events {
		record := []string{
			strconv.FormatInt(e.Sequence, 10),
			e.OccurredAt.UTC().Format(time.RFC3339Nano),
			e.ActorProfileID,
			e.ResourceType,
			e.ResourceID,
			string(e.Action),
			strings.Join(e.FieldsAccessed, ";"),
			e.Justification,
			e.Hash,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
