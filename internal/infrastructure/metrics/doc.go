// Package metrics exposes the service's Prometheus counters and gauges.
//
// The method set matches the engine's hook signatures, so a *Metrics can be
// wired directly:
//
//	m := metrics.New()
//	dispatcher.SetHooks(dispatch.Hooks{
//	    UnknownDatapoint: m.UnknownDatapoint,
//	    WriteResult:      m.WriteResult,
//	})
//	mutator.SetObserver(m.MutationOutcome)
package metrics
