// Package shareaudit provides the forensic download audit ledger,
// administrative activity log, usage-metrics aggregation and bulk
// export streaming for a file-sharing service, with pluggable
// repository backends.
//
// It exposes a single Service interface. Download attempts are tracked
// as durable two-state records: BeginDownload persists a pending record
// before the transfer starts and CompleteDownload closes it afterwards,
// so a crash mid-transfer still leaves forensic evidence. Audit and
// activity writes live in their own failure domain: storage errors are
// routed to a DiagnosticSink and never surface to the operation being
// observed. Repository implementations (memory, Postgres) are provided
// under subpackages; the HTTP layer lives under api.
package shareaudit
