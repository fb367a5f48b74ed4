package resolver

import (
	"context"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"
	"golang.org/x/net/idna"
	"golang.org/x/sync/errgroup"

	"github.com/customeros/mxvalidator/config"
	"github.com/customeros/mxvalidator/dto"
	"github.com/customeros/mxvalidator/interfaces"
	"github.com/customeros/mxvalidator/internal/enum"
	"github.com/customeros/mxvalidator/internal/logger"
	"github.com/customeros/mxvalidator/internal/tracing"
)

const (
	DefaultConcurrency = 10
	DefaultTimeout     = 10 * time.Second
)

// MXLookup is satisfied by *net.Resolver.
type MXLookup interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

type domainResolver struct {
	lookup      MXLookup
	concurrency int
	timeout     time.Duration
	log         logger.Logger
}

// NewDomainResolver uses net.DefaultResolver when lookup is nil.
func NewDomainResolver(cfg *config.ResolverConfig, lookup MXLookup, log logger.Logger) interfaces.DomainResolver {
	r := &domainResolver{
		lookup:      lookup,
		concurrency: DefaultConcurrency,
		timeout:     DefaultTimeout,
		log:         log,
	}
	if r.lookup == nil {
		r.lookup = net.DefaultResolver
	}
	if cfg != nil {
		if cfg.Concurrency > 0 {
			r.concurrency = cfg.Concurrency
		}
		if cfg.Timeout > 0 {
			r.timeout = cfg.Timeout
		}
	}
	return r
}

// Resolve performs exactly one MX lookup for domain. Failures are reported
// through the returned Resolution, never as a panic or error.
func (r *domainResolver) Resolve(ctx context.Context, domain string) dto.Resolution {
	span, ctx := opentracing.StartSpanFromContext(ctx, "DomainResolver.Resolve")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("domain", domain)

	resolution := r.resolve(ctx, domain)

	span.LogFields(
		tracingLog.String("outcome", resolution.Outcome.String()),
		tracingLog.Int("records", len(resolution.Records)),
	)
	if resolution.Err != nil {
		span.LogFields(tracingLog.String("lookupError", resolution.Err.Error()))
	}
	return resolution
}

func (r *domainResolver) resolve(ctx context.Context, domain string) dto.Resolution {
	resolution := dto.Resolution{Domain: domain}

	asciiDomain, err := toASCII(domain)
	if err != nil {
		resolution.Outcome = enum.ResolutionUnreachable
		resolution.Err = err
		return resolution
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	mxs, err := r.lookup.LookupMX(lookupCtx, asciiDomain)
	if err != nil && len(mxs) == 0 {
		resolution.Outcome = enum.ResolutionUnreachable
		resolution.Err = errors.Wrapf(err, "mx lookup failed for %s", asciiDomain)
		return resolution
	}

	resolution.Records = normalizeRecords(mxs)
	if len(resolution.Records) == 0 {
		resolution.Outcome = enum.ResolutionEmpty
		return resolution
	}

	resolution.Outcome = enum.ResolutionResolved
	return resolution
}

// ResolveAll resolves every domain with at most the configured number of
// lookups in flight and hands each result to handler. It returns once every
// handler call has finished. A panic in one task is recovered and does not
// affect the others.
func (r *domainResolver) ResolveAll(ctx context.Context, domains []string, handler interfaces.ResolutionHandler) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "DomainResolver.ResolveAll")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogFields(tracingLog.Int("domains", len(domains)), tracingLog.Int("concurrency", r.concurrency))

	var g errgroup.Group
	g.SetLimit(r.concurrency)

	for _, domain := range domains {
		domain := domain
		g.Go(func() error {
			defer tracing.RecoverAndLogToJaeger(r.log)

			resolution := r.Resolve(ctx, domain)
			if handler != nil {
				handler(ctx, resolution)
			}
			return nil
		})
	}

	_ = g.Wait()
}

func toASCII(domain string) (string, error) {
	domain = strings.TrimSuffix(strings.TrimSpace(domain), ".")
	if domain == "" {
		return "", errors.New("empty domain")
	}

	ascii, err := idna.Lookup.ToASCII(domain)
	if err != nil {
		return "", errors.Wrapf(err, "invalid domain %q", domain)
	}
	return ascii, nil
}

// normalizeRecords drops null MX targets, strips the trailing dot and orders
// by ascending preference. Equal preferences keep the resolver's order.
func normalizeRecords(mxs []*net.MX) []dto.MxRecord {
	records := make([]dto.MxRecord, 0, len(mxs))
	for _, mx := range mxs {
		if mx == nil {
			continue
		}
		host := strings.TrimSuffix(mx.Host, ".")
		if host == "" {
			continue
		}
		records = append(records, dto.MxRecord{Priority: mx.Pref, Host: host})
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Priority < records[j].Priority
	})
	return records
}
