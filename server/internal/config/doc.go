// Package config loads the server-side configuration from the `server:` section
// of config.yaml (the `viewer:` key is ignored by the server binary).
//
// Config fields:
//   - HTTPPort      port for one-shot requests, upgrades, /healthz, /metrics (default 4000)
//   - GRPCPort      port for the gRPC board service, 0 disables (default 50051)
//   - Path          service path (default /graphql)
//   - AllowedOrigin CORS origin (default http://localhost:5173)
//   - MaxBodyBytes  one-shot body cap (default 1 MiB)
//   - SendBuffer    per-connection push queue depth (default 256)
//   - LogLevel      debug | info | warn | error (default info)
//   - SeedWelcome   create a welcome message at startup (default false)
//   - Webhooks      slack | teams | http targets, URLs read from url_env
//
// Load(path) applies defaults before unmarshalling, then environment
// overrides (CHIRPWALL_HTTP_PORT, CHIRPWALL_GRPC_PORT,
// CHIRPWALL_ALLOWED_ORIGIN, CHIRPWALL_LOG_LEVEL), then validates.
//
// Watch(ctx, path, fn) reloads the file on every write and hands the new
// Config to fn. Invalid reloads are logged and skipped.
package config
