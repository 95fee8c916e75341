// Package health provides the liveness and readiness probes of the
// custodian ops server.
//
// # Endpoints
//
//   - /health: liveness, always 200 while the process runs
//   - /ready: readiness, 200 when every registered check passes, 503 otherwise
//   - /version: build information
//
// # Checks
//
// Checks are plain functions returning nil when healthy. They run
// concurrently, each bounded by the checker timeout. The package ships
// checks for the retention store (StoreCheck), the file tree (TreeCheck) and
// the scheduler (SchedulerCheck):
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("store", health.StoreCheck(store))
//	checker.RegisterCheck("filetree", health.TreeCheck(tree))
//
//	mux := http.NewServeMux()
//	health.Register(mux, checker, version, commit, buildTime)
package health
