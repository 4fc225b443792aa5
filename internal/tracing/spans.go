package tracing

// Span attribute keys.
const (
	AttrRunID      = "run.id"
	AttrRunNodes   = "run.nodes"
	AttrRunEdges   = "run.edges"
	AttrRunSuccess = "run.success"
	AttrRunCredits = "run.credits_used"

	AttrNodeID    = "node.id"
	AttrNodeType  = "node.type"
	AttrNodeModel = "node.model"

	AttrHTTPMethod = "http.method"
	AttrHTTPRoute  = "http.route"
	AttrHTTPStatus = "http.status_code"

	AttrErrorMessage = "error.message"
)

// Span names.
const (
	SpanWorkflowRun  = "workflow.run"
	SpanWorkflowSort = "workflow.sort"
	SpanNodePrefix   = "node."
	SpanHTTPPrefix   = "http."
)

// Span event names.
const (
	EventCycleDetected = "cycle.detected"
	EventRunCancelled  = "run.cancelled"
	EventNodeWarning   = "node.warning"
)
