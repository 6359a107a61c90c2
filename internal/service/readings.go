package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/meter-data-loader/internal/database"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/domain"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/ingest"
)

// ErrInvalidPayload is returned for messages that are not a reading.
var ErrInvalidPayload = errors.New("invalid reading payload")

// RowIngester stores one parsed row.
type RowIngester interface {
	IngestRow(ctx context.Context, q database.Querier, source string, row ingest.Row) error
}

// ReadingService stores readings that arrive as messages rather than files.
type ReadingService struct {
	ingester RowIngester
	q        database.Querier
	log      zerolog.Logger
}

func NewReadingService(ingester RowIngester, q database.Querier, log zerolog.Logger) *ReadingService {
	return &ReadingService{
		ingester: ingester,
		q:        q,
		log:      log.With().Str("component", "readings").Logger(),
	}
}

type readingMessage struct {
	MeterName string                     `json:"meter_name"`
	Values    map[string]json.RawMessage `json:"values"`
}

// FromMQTT stores one reading published on topic. Values are keyed by the
// same header text as the data files.
func (s *ReadingService) FromMQTT(ctx context.Context, topic string, payload []byte) error {
	row, unknown, err := ParsePayload(payload)
	if err != nil {
		return err
	}
	if len(unknown) > 0 {
		s.log.Warn().Str("topic", topic).Strs("fields", unknown).Msg("ignoring unknown fields")
	}
	return s.ingester.IngestRow(ctx, s.q, topic, row)
}

// ParsePayload decodes a message into a row aligned with domain.Columns and
// the value keys that match no column.
func ParsePayload(payload []byte) (ingest.Row, []string, error) {
	var msg readingMessage
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&msg); err != nil {
		return ingest.Row{}, nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if msg.MeterName == "" {
		return ingest.Row{}, nil, fmt.Errorf("%w: meter_name is required", ErrInvalidPayload)
	}

	row := ingest.Row{MeterName: msg.MeterName, Values: make([]any, len(domain.Columns))}
	var unknown []string
	for key, raw := range msg.Values {
		col, ok := domain.ColumnIndex(key)
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		v, err := scalar(raw)
		if err != nil {
			return ingest.Row{}, nil, fmt.Errorf("%w: %q: %v", ErrInvalidPayload, key, err)
		}
		row.Values[col] = v
	}
	sort.Strings(unknown)
	return row, unknown, nil
}

// scalar converts a JSON value into the text form a file cell would carry.
func scalar(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case nil:
		return nil, nil
	case json.Number:
		return t.String(), nil
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return s, nil
		}
		return nil, nil
	}
	return nil, fmt.Errorf("unsupported value %s", raw)
}
