package scheduler

import (
	"context"
	"fmt"

	"github.com/meetdesk/meetdesk/pkg/models"
	"github.com/sirupsen/logrus"
)

type decisionStore interface {
	ForwardDecisions(ctx context.Context, meetingID, userID int) ([]models.ForwardDecision, error)
}

// Resolver selects the points of a completed meeting that must be carried
// into its next occurrence.
type Resolver struct {
	log   *logrus.Entry
	store decisionStore
}

func NewResolver(log *logrus.Logger, store decisionStore) *Resolver {
	return &Resolver{
		log:   log.WithField("component", "resolver"),
		store: store,
	}
}

// ResolveForwardedPoints returns the payloads of points to carry forward:
// decisions authored by creatorID with forward type NEXT whose processed flag
// is still unset. The decision outcome (AGREE/DISAGREE/FORWARD) does not gate
// inclusion. SPECIFIC_MEETING forwards belong to the on-demand workflow, NIL
// means do not carry. A decision whose origin point row no longer exists is
// skipped, never fatal.
func (r *Resolver) ResolveForwardedPoints(ctx context.Context, meetingID, creatorID int) ([]models.PointPayload, error) {
	decisions, err := r.store.ForwardDecisions(ctx, meetingID, creatorID)
	if err != nil {
		return nil, fmt.Errorf("err resolving forwarded points for meeting %d: %w", meetingID, err)
	}
	payloads := make([]models.PointPayload, 0, len(decisions))
	for _, d := range decisions {
		if d.ForwardType != models.ForwardTypeNext || d.Processed {
			continue
		}
		if d.PointName == nil {
			r.log.Warnf("decision %d references missing point %d, skipping", d.ID, d.PointID)
			continue
		}
		p := models.PointPayload{
			OriginPointID: d.PointID,
			Name:          *d.PointName,
			Deadline:      d.Deadline,
		}
		if d.Responsibility != nil {
			p.Responsibility = *d.Responsibility
		}
		if d.Remarks != nil {
			p.Remarks = *d.Remarks
		}
		payloads = append(payloads, p)
	}
	return payloads, nil
}
