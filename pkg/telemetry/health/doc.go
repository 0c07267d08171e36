// Package health serves the proxy's liveness, readiness and version probes.
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCheck("audit", store.Ping)
//	health.Register(mux, checker, version, commit, buildTime)
//
// /health always answers 200 while the process runs. /ready runs every
// registered check and answers 503 if any fails or times out.
package health
