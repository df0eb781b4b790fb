// Package tasks coordinates playlist searches between the services layer and the CLI/TUI.
//
// # Query Session
//
// [QuerySession] owns the pagination state for one active query: the accumulated, de-duplicated result
// list, the next offset, and whether more pages exist. Switching queries bumps a generation counter so a
// page that arrives for an older query is silently dropped.
//
// Every transition is published as a [View] snapshot. Subscribers receive the latest snapshot through a
// buffered channel of size one and never observe a partially updated list.
//
// # Mood Sampling
//
// [SampleMoods] fetches a small first page for several moods at once using a bounded worker pool and
// reports progress through non-blocking [ProgressUpdate] sends.
package tasks
