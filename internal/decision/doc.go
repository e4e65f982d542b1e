// Package decision runs the irrigation control loop.
//
// One cycle:
//  1. fetch the plant snapshot (empty or unavailable ends the cycle)
//  2. group plants by pot
//  3. look up each plant's duration in the active strategy (errors count as 0)
//  4. reduce each pot to the smallest positive duration, or skip it
//  5. resolve the pot's pump channel (invalid channels skip the pot)
//  6. dispatch one command per remaining pot
//
// The reduction waters a mixed pot only as long as its least demanding
// thirsty plant needs, and never waters a pot where no plant asks for it.
//
// Engine guarantees at most one cycle at a time; Scheduler drives it on a
// ticker and manual triggers share the same guard.
package decision
