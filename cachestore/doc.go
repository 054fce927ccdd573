// Cache for completed analysis results, with a fixed TTL and explicit per-dataset invalidation.
//
// Results are addressed by the dataset fingerprint and a run key covering the configuration and run options, so a hit is only possible for an identical snapshot analyzed with identical settings. The in-process store only helps a long-lived Analyzer; a one-shot command needs the redis store to ever see a hit.
package cachestore
