package domain

// Route is the disposition derived from a classification.
type Route string

const (
	RouteScheduling Route = "scheduling"
	RouteDraft      Route = "draft"
	RouteSkip       Route = "skip"
)

// RoutingDecision is computed fresh per message from a ClassificationResult.
// It has no independent lifecycle.
type RoutingDecision struct {
	Route      Route  `json:"route"`
	Reasoning  string `json:"reasoning"`
	Confidence int    `json:"confidence"`
}
