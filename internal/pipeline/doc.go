// Package pipeline turns one fetched page into the links worth crawling next.
//
// A page flows through two pipelines of steps. The extract pipeline checks
// the response, parses the HTML, applies the low-information gate and
// tokenizes the visible text. It touches no shared state. The decide pipeline
// runs near-duplicate detection, records statistics, discovers new link
// targets and runs each through the admission filter. It runs under the
// Processor's lock.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
//  1. Each rejection reason maps to exactly one step
//  2. It provides consistent cancellation and logging across steps
//  3. The split between pure and stateful steps is visible in one place
//
// BatchProcessor replays a fetch log through a shared Processor with
// concurrency control using errgroup.
package pipeline
