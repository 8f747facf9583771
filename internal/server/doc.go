// Package server exposes the digest pipeline over HTTP and on a schedule.
//
// # Key Components
//
// Server is the trigger endpoint: any request outside the health routes
// runs the pipeline once and answers with the run's status and message. Liveness
// and readiness probes are served next to it; readiness turns on once the
// listener is bound.
//
// Serial makes sure at most one run is in flight, whether it was started by
// an HTTP request or by the Scheduler.
//
// Scheduler fires runs from a cron expression for deployments without an
// external trigger.
//
// MetricsServer serves Prometheus metrics on a dedicated port.
package server
