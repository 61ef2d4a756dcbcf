// Wayfarer - Hybrid Travel Destination Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

// Package recommend implements the hybrid recommendation decision
// engine: strategy routing over cold-start clustering, item-neighbor
// collaborative filtering and content-similarity filtering, free-text
// query classification, and a cascading filter-and-fallback pipeline.
//
// # Request Flow
//
// A request enters the strategy router, which picks a candidate
// generator from the user's identity and rating history size. The
// generator's output optionally passes through the filter pipeline,
// driven by the classifier's verdict on the query text. The assembler
// deduplicates, trims to n and shapes the final records.
//
// # Model Snapshots
//
// All precomputed models (item-CF neighbors, content neighbors,
// popularity ranking, cluster assignments) live in an immutable
// Snapshot published through an atomic pointer. Rebuilds construct a
// complete new snapshot and swap it in; an in-flight request binds one
// snapshot for its whole lifetime and never observes a partial
// rebuild. Rating counts and cluster assignments are the only durable
// state read fresh per request.
package recommend
