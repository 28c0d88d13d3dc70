// Package pipeline runs the ordered analysis stages against a detection
// service and merges what they find into an annotation store.
//
// # Stages
//
// A pipeline is a fixed, ordered list of named stages. Stages run strictly
// one after another: a stage's request is issued only after the previous
// stage has settled, and every request carries the parsed output of the
// stages that succeeded before it.
//
// Each stage call is a submit followed by polling. Polling is bounded by a
// fixed number of attempts with a fixed interval between them; running out
// of attempts fails the stage with ErrPollTimeout.
//
// # Failure
//
// A failed stage is recorded as failed, reported in the result stream as a
// *StageFailedError, and the run continues with the next stage. Entities
// merged by earlier stages are never removed because a later stage failed.
//
// # Results
//
// Run.Results is a single-use iterator that drives the stages as it is
// consumed and yields one StageResult per stage that settles. Cancel is
// cooperative: it is checked between stages, so a request already in flight
// may complete, but its output is discarded and nothing from it is merged.
// Stages that were never reached stay pending.
package pipeline
