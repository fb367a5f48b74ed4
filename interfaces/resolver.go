package interfaces

import (
	"context"

	"github.com/customeros/mxvalidator/dto"
)

// ResolutionHandler receives each domain's resolution as soon as it is known.
// It may be called concurrently.
type ResolutionHandler func(ctx context.Context, resolution dto.Resolution)

type DomainResolver interface {
	Resolve(ctx context.Context, domain string) dto.Resolution
	ResolveAll(ctx context.Context, domains []string, handler ResolutionHandler)
}
