// Package cache stores synthesized speech clips so that replaying or
// seeking back over a sentence does not run the synthesizer again.
//
// Clips live in an in-memory LRU (L1) backed by a zstd-compressed disk
// cache (L2) that survives restarts.
package cache
