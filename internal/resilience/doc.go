// Package resilience provides the fault tolerance building blocks used by
// the generation client and the failover orchestrator.
//
// The package supports:
//   - Circuit breakers per generation endpoint (local Ollama hosts, hosted API)
//   - Fixed-delay retry pacing between attempts on one candidate
//
// Usage Example:
//
//	breakers := circuitbreaker.NewGroup(circuitbreaker.DefaultConfig("generation"))
//	gen, err := circuitbreaker.Execute(breakers.Get("local|http://gpu-box:11434"), func() (*entity.Generation, error) {
//	    return callEndpoint(ctx)
//	})
//
//	gen, err := retry.Do(ctx, retry.FixedDelayConfig(2, time.Second), func(attempt int) (*entity.Generation, error) {
//	    return attemptCandidate(ctx, attempt)
//	})
package resilience
