package usecase

import (
	"context"

	"ShapeFinder/pkg/queue"
)

// MatchJob runs queued match requests. Like the Kafka path, the report is
// delivered through the matcher's publisher and broadcaster.
type MatchJob struct {
	matcher *MatcherUseCase
}

var _ queue.Job = (*MatchJob)(nil)

func NewMatchJob(matcher *MatcherUseCase) *MatchJob {
	return &MatchJob{matcher: matcher}
}

func (j *MatchJob) Name() string { return "match-job" }

func (j *MatchJob) Type() string { return MatchJobType }

func (j *MatchJob) Handle(ctx context.Context, payload []byte) error {
	p, err := decodeMatchRequest(payload)
	if err == nil {
		_, err = j.matcher.Match(ctx, p)
	}
	if permanent(err) {
		return queue.Permanent(err)
	}
	return err
}
