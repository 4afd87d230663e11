// Package publisher pushes package archives to remote destinations.
//
// A destination is either a node (spoken to over its write API) or a
// content-addressed registry such as an s3 bucket.  Pushes are idempotent:
// a destination that already holds the package's content address is left
// alone.
package publisher

import (
	"context"
	"net/url"

	"github.com/serum-errors/go-serum"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/borderless-technologies/borderless-cli/bpapi"
	"github.com/borderless-technologies/borderless-cli/pkg/linkstore"
	"github.com/borderless-technologies/borderless-cli/pkg/logging"
	"github.com/borderless-technologies/borderless-cli/pkg/tracing"
)

type pusher interface {
	// Errors:
	//
	// 	- borderless-error-network -- when the destination is unreachable
	// 	- borderless-error-remote-rejected -- when the destination refuses the request
	hasPackage(ctx context.Context, id bpapi.PackageID) (bool, error)
	// Errors:
	//
	// 	- borderless-error-network -- when the destination is unreachable
	// 	- borderless-error-remote-rejected -- when the destination refuses the package
	pushPackage(ctx context.Context, id bpapi.PackageID, archive []byte) error
}

func pusherForDestination(ctx context.Context, link linkstore.Link) (pusher, error) {
	u, err := url.Parse(link.Addr)
	if err != nil {
		return nil, serum.Error(bpapi.ECodeArgument,
			serum.WithMessageTemplate("destination address {{addr|q}} is not a valid URL"),
			serum.WithDetail("addr", link.Addr),
		)
	}
	span := trace.SpanFromContext(ctx)
	switch u.Scheme {
	case "http", "https":
		span.SetAttributes(tracing.AttrFullKindNode)
		return newNodePusher(link)
	case "ca+s3":
		span.SetAttributes(tracing.AttrFullKindRegistry)
		return newS3Pusher(ctx, u)
	default:
		return nil, serum.Error(bpapi.ECodeArgument,
			serum.WithMessageTemplate("unsupported destination scheme {{scheme|q}}"),
			serum.WithDetail("scheme", u.Scheme),
		)
	}
}

// PushToDestination uploads an archive to the destination a link points at.
// If the destination already holds the package's content address, nothing
// is uploaded.
//
// Errors:
//
//    - borderless-error-invalid-argument -- when the destination address is unusable
//    - borderless-error-network -- when the destination is unreachable
//    - borderless-error-remote-rejected -- when the destination refuses the package
func PushToDestination(ctx context.Context, link linkstore.Link, id bpapi.PackageID, archive []byte) error {
	log := logging.Ctx(ctx)
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String(tracing.AttrKeyBorderlessPackageId, id.String()),
		attribute.String(tracing.AttrKeyBorderlessLinkName, link.Name),
	)

	p, err := pusherForDestination(ctx, link)
	if err != nil {
		return err
	}

	has, err := p.hasPackage(ctx, id)
	if err != nil {
		return err
	}
	if has {
		log.Debug("publish", "destination %q already has package %s, skipping", link.Name, id)
		return nil
	}
	log.Info("publish", "pushing package: id = %s, destination = %s", id, link.Addr)
	return p.pushPackage(ctx, id, archive)
}
