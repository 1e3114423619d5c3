// Package routing maps a classification verdict onto a processing route.
package routing

import (
	"fmt"

	"assistant_server/core/domain"
)

// Confidence thresholds for the decision table. Kept as named constants so
// tuning them is a one-line change, with defaults overridable via config.
const (
	DefaultSchedulingMinConfidence = 60
	DefaultDraftMinConfidence      = 70
)

// Router decides what happens to a classified message. Pure logic, no I/O:
// the decision depends only on the verdict flag and confidence. Content-based
// exceptions (meeting confirmations, calendar notifications) are the
// classifier's job, so the table here stays small and auditable.
type Router struct {
	schedulingMin int
	draftMin      int
}

func NewRouter(schedulingMinConfidence, draftMinConfidence int) *Router {
	if schedulingMinConfidence <= 0 {
		schedulingMinConfidence = DefaultSchedulingMinConfidence
	}
	if draftMinConfidence <= 0 {
		draftMinConfidence = DefaultDraftMinConfidence
	}
	return &Router{
		schedulingMin: schedulingMinConfidence,
		draftMin:      draftMinConfidence,
	}
}

// Decide applies the routing table:
//
//	scheduling=true,  confidence >= schedulingMin -> scheduling
//	scheduling=true,  confidence <  schedulingMin -> draft
//	scheduling=false, confidence >= draftMin      -> draft
//	scheduling=false, confidence <  draftMin      -> skip
//
// A low-confidence positive verdict routes to draft rather than scheduling:
// drafting a reply is recoverable, booking a phantom meeting is not.
func (r *Router) Decide(c *domain.ClassificationResult) domain.RoutingDecision {
	switch {
	case c.IsSchedulingRequest && c.Confidence >= r.schedulingMin:
		return domain.RoutingDecision{
			Route:      domain.RouteScheduling,
			Confidence: c.Confidence,
			Reasoning:  fmt.Sprintf("scheduling request at confidence %d", c.Confidence),
		}
	case c.IsSchedulingRequest:
		return domain.RoutingDecision{
			Route:      domain.RouteDraft,
			Confidence: c.Confidence,
			Reasoning:  fmt.Sprintf("scheduling request below confidence %d, drafting instead", r.schedulingMin),
		}
	case c.Confidence >= r.draftMin:
		return domain.RoutingDecision{
			Route:      domain.RouteDraft,
			Confidence: c.Confidence,
			Reasoning:  fmt.Sprintf("non-scheduling message at confidence %d", c.Confidence),
		}
	default:
		return domain.RoutingDecision{
			Route:      domain.RouteSkip,
			Confidence: c.Confidence,
			Reasoning:  "insufficient confidence either way",
		}
	}
}
