package tracing

import "go.opentelemetry.io/otel/attribute"

// Span attribute keys used by borderless
const (
	AttrKeyBorderlessErrorCode     = "borderless.error.code"
	AttrKeyBorderlessPackageId     = "borderless.package.id"
	AttrKeyBorderlessPackageName   = "borderless.package.name"
	AttrKeyBorderlessLinkName      = "borderless.link.name"
	AttrKeyBorderlessEndpoint      = "borderless.endpoint"
	AttrKeyBorderlessHttpStatus    = "borderless.http.status"
	AttrKeyBorderlessRetryAttempts = "borderless.retry.attempts"
)

// Enumerated attributes
var (
	AttrFullKindNode     = attribute.String("borderless.remote.kind", "node")
	AttrFullKindRegistry = attribute.String("borderless.remote.kind", "registry")
)
