// Package catalog turns product catalog feeds expressed as XML into a flat
// table of string fields.
//
// This package is the heart of the flattener, containing all normalization
// logic independent of any transport. It is used by the HTTP adapter, the
// CLI and tests without modification.
//
// # Architecture
//
// The package is organized around a handful of stages:
//
//   - Decoding: raw bytes become UTF-8 text ([DecodeDocument]).
//   - Dispatch: the text is sniffed, cleaned, parsed and classified into one
//     of four dialects ([Prepare]).
//   - Flattening: each record element becomes a [FlatRecord] through the
//     [Flattener] chosen for the dialect.
//   - Orchestration: records are flattened in chunks concurrently and
//     re-joined in document order ([ProcessAll]).
//   - Projection: the stable column set is computed ([ProjectColumns]) and
//     rows are written as `;`-delimited text ([WriteTable]).
//
// [Processor.Process] wires these stages together and writes one artifact
// per call.
//
// # Dialects
//
//   - Offer: YML-style feeds with `offer` elements and a `category` tree.
//   - Product: feeds with `product` elements.
//   - Russian: accounting exports with `ЭлементСправочника` elements and
//     table parts (`ТЧ`).
//   - Service: feeds with `service` elements.
//
// # Multi-valued fields
//
// When several source elements map to the same field, values are joined
// with [Delimiter] ("///") and de-duplicated in first-seen order.
//
// # Error Handling
//
// Document-level failures abort the run with a typed error:
// [InvalidInputError], [MalformedDocumentError] or [UnsupportedFormatError].
// Per-record anomalies never abort a run; they are reported as
// [ExtractionWarning] values alongside the records. [MapError] maps any of
// these to a user-facing message with a support code.
package catalog
