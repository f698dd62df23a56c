package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ShapeFinder/internal/domain/models"
	domrepo "ShapeFinder/internal/domain/repository"
	pkgkafka "ShapeFinder/pkg/kafka"
)

// MatchJobType is the queue message type of an asynchronous match.
const MatchJobType = "match"

var (
	errMalformedRequest = errors.New("malformed match request")
	errMissingQueryName = errors.New("match request without query_name")
)

// matchRequest is the wire form of a match request on Kafka and the job queue.
// A missing n selects the configured neighbor count; an explicit n must be
// positive.
type matchRequest struct {
	QueryName string `json:"query_name"`
	N         *int   `json:"n,omitempty"`
	Period    int    `json:"period"`
}

func decodeMatchRequest(b []byte) (MatchParams, error) {
	var m matchRequest
	if err := json.Unmarshal(b, &m); err != nil {
		return MatchParams{}, fmt.Errorf("%w: %v", errMalformedRequest, err)
	}
	if m.QueryName == "" {
		return MatchParams{}, errMissingQueryName
	}
	n, err := NeighborCount(m.N)
	if err != nil {
		return MatchParams{}, err
	}
	return MatchParams{QueryName: m.QueryName, N: n, Period: m.Period}, nil
}

// NeighborCount turns an optional requested count into MatchParams.N. Nil
// selects the configured count; an explicit value below 1 is rejected.
func NeighborCount(n *int) (int, error) {
	if n == nil {
		return 0, nil
	}
	if *n < 1 {
		return 0, fmt.Errorf("%w: %d", models.ErrInvalidNeighborCount, *n)
	}
	return *n, nil
}

// permanent reports whether a failed request fails the same way on every
// retry: it cannot be decoded or its query cannot be matched as stored.
func permanent(err error) bool {
	for _, target := range []error{
		errMalformedRequest,
		errMissingQueryName,
		models.ErrSeriesNotFound,
		models.ErrInsufficientData,
		models.ErrInvalidSeriesName,
		models.ErrInvalidNeighborCount,
		models.ErrInvalidPeriod,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// KafkaMatchHandler runs a match for every request read from Kafka. The
// report reaches consumers through the matcher's publisher.
type KafkaMatchHandler struct {
	topic   string
	matcher *MatcherUseCase
	metrics domrepo.Metrics
}

var _ pkgkafka.MessageHandler = (*KafkaMatchHandler)(nil)

func NewKafkaMatchHandler(topic string, matcher *MatcherUseCase, metrics domrepo.Metrics) *KafkaMatchHandler {
	return &KafkaMatchHandler{topic: topic, matcher: matcher, metrics: metrics}
}

func (h *KafkaMatchHandler) Topic() string { return h.topic }

// incoming message schema: {query_name, n, period}. Requests that can never
// succeed are returned as permanent so they skip the retry backoff.
func (h *KafkaMatchHandler) Handle(ctx context.Context, b []byte) error {
	p, err := decodeMatchRequest(b)
	if err != nil {
		h.recordError("consumer_decode")
		return pkgkafka.Permanent(err)
	}
	if _, err := h.matcher.Match(ctx, p); err != nil {
		h.recordError("consumer_match")
		if permanent(err) {
			return pkgkafka.Permanent(err)
		}
		return err
	}
	return nil
}

func (h *KafkaMatchHandler) recordError(kind string) {
	if h.metrics != nil {
		h.metrics.RecordError(kind)
	}
}
