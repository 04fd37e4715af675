package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"SignalDesk/internal/adapters"
	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/domain/repository"
	applogger "SignalDesk/pkg/logger"
)

// Endpoint outcomes reported to metrics.
const (
	endpointOK           = "ok"
	endpointDisabled     = "disabled"
	endpointUnauthorized = "unauthorized"
	endpointQuota        = "quota"
	endpointHTTPError    = "http_error"
	endpointTransport    = "transport_error"
)

type cycleResult struct {
	state   models.DashboardState
	auth    bool
	quota   bool
	enabled int
	failed  int
}

type fetched struct {
	ep   repository.Endpoint
	resp *repository.Response
	err  error
	// panicked marks a fetch that blew up rather than failed.
	panicked bool
}

// collect fetches every endpoint concurrently and waits for all of them. Endpoints that
// fail leave their slot empty in the returned state. A panic in any fetch fails the cycle.
func (o *Orchestrator) collect(ctx context.Context) (res cycleResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()

	ch := make(chan fetched, len(repository.Endpoints))
	var wg sync.WaitGroup
	for _, ep := range repository.Endpoints {
		wg.Add(1)
		go func(ep repository.Endpoint) {
			defer wg.Done()
			ch <- o.fetch(ctx, ep)
		}(ep)
	}
	go func() { wg.Wait(); close(ch) }()

	results := make(map[repository.Endpoint]fetched, len(repository.Endpoints))
	for it := range ch {
		results[it.ep] = it
	}

	now := o.now()
	res.state = emptyState()
	for _, ep := range repository.Endpoints {
		it := results[ep]
		switch {
		case it.panicked:
			return cycleResult{}, it.err
		case errors.Is(it.err, repository.ErrEndpointDisabled):
			o.metrics.RecordEndpoint(string(ep), endpointDisabled)
			continue
		case it.err != nil:
			res.enabled++
			res.failed++
			o.metrics.RecordEndpoint(string(ep), endpointTransport)
			if ctx.Err() == nil {
				o.log.Warn("endpoint fetch failed", applogger.String("endpoint", string(ep)), applogger.Error(it.err))
			}
			continue
		}

		res.enabled++
		switch status := it.resp.Status; {
		case status == http.StatusUnauthorized:
			res.auth = true
			o.metrics.RecordEndpoint(string(ep), endpointUnauthorized)
		case status == http.StatusPaymentRequired:
			res.quota = true
			o.metrics.RecordEndpoint(string(ep), endpointQuota)
		case status < 200 || status > 299:
			o.metrics.RecordEndpoint(string(ep), endpointHTTPError)
			o.log.Warn("endpoint returned error status",
				applogger.String("endpoint", string(ep)),
				applogger.Int("status", status),
				applogger.String("detail", it.resp.Detail),
			)
		default:
			o.metrics.RecordEndpoint(string(ep), endpointOK)
			o.decodeInto(&res.state, ep, it.resp.Body, now)
		}
	}

	res.state.Loading = false
	res.state.Error = nil
	res.state.LastUpdated = &now
	return res, nil
}

func (o *Orchestrator) fetch(ctx context.Context, ep repository.Endpoint) (out fetched) {
	out.ep = ep
	defer func() {
		if r := recover(); r != nil {
			out = fetched{ep: ep, err: panicError(r), panicked: true}
		}
	}()
	out.resp, out.err = o.source.Fetch(ctx, ep, o.cfg.Pair, o.cfg.Token)
	if out.err == nil && out.resp == nil {
		out.err = fmt.Errorf("%s: empty response", ep)
	}
	return out
}

// decodeInto runs the adapter for ep and stores its value. Malformed payloads are logged
// and leave the slot empty.
func (o *Orchestrator) decodeInto(state *models.DashboardState, ep repository.Endpoint, body []byte, now time.Time) {
	var (
		kind  adapters.Kind
		shape adapters.Shape
		err   error
	)
	switch ep {
	case repository.EndpointStrategy:
		r := adapters.DecodeStrategies(body, now)
		if r.Value != nil {
			state.Strategies = r.Value
		}
		kind, shape, err = r.Kind, r.Shape, r.Err
	case repository.EndpointRegime:
		r := adapters.DecodeRegime(body)
		state.RegimeText = r.Value
		kind, shape, err = r.Kind, r.Shape, r.Err
	case repository.EndpointCurrentNews:
		r := adapters.DecodeCurrentNews(body)
		if r.Value != nil {
			state.CurrentNews = r.Value
		}
		kind, shape, err = r.Kind, r.Shape, r.Err
	case repository.EndpointUpcomingNews:
		r := adapters.DecodeUpcoming(body)
		state.Upcoming = r.Value
		kind, shape, err = r.Kind, r.Shape, r.Err
	}

	o.metrics.RecordDecode(string(ep), kind.String())
	if kind == adapters.KindMalformed {
		o.log.Warn("malformed payload",
			applogger.String("endpoint", string(ep)),
			applogger.String("shape", string(shape)),
			applogger.Error(err),
		)
	}
}

func panicError(r any) error {
	if e, ok := r.(error); ok {
		return e
	}
	return fmt.Errorf("%v", r)
}
