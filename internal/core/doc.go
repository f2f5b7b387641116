// Package core provides the business logic for stored DTASelect filter
// reports.
//
// It sits between the transports (web handlers, the directory watcher) and
// the dtaselect parser. It can be used by web handlers, command line tools or
// tests without modification.
//
// # Architecture
//
//   - Service: the entry point for every operation (ingest, convert, preview,
//     browse, edit, export, delete, restore).
//   - ReportStore: persistence. [MemoryStore] keeps reports in process,
//     [PgStore] keeps them in PostgreSQL with rows bulk loaded over COPY.
//   - Streaming: uploads are size-limited, BOM-stripped and decoded to UTF-8
//     before parsing.
//   - UploadLimiter: bounds how many reports are parsed at once and lets
//     shutdown wait for in-flight ingests.
//   - History: each change stores an [AuditEntry] with the report text it
//     replaced. [Service.Restore] rolls back to it and
//     [Service.StartPruneScheduler] expires old entries.
//   - Watcher: ingests files dropped into a directory.
//
// # Ingest
//
//  1. Client calls [Service.Ingest] with an io.Reader
//  2. The reader is wrapped by [WrapForStreaming]
//  3. The report is parsed with dtaselect and given a UUID
//  4. The store saves metadata and rows in one transaction
//  5. An ingest entry is added to the report's history
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with [MapError]. Each
// category has a code for support reference:
//
//   - FMT001-FMT002: report format errors
//   - CNV001: cell type errors
//   - CNS001: protein group consistency errors
//   - RPT001-RPT004: stored report lookups
//   - AUD001-AUD002: history entries
//   - TBL002-TBL003, REQ001: request parameters
//   - DB001-DB007: database errors
//   - FILE001-FILE005: file errors
//   - UPL002-UPL005: upload errors
package core
