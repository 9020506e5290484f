// Package level runs one loaded level: it builds the world from a level
// config, places the actor, counts the timer down and scores the win.
//
// Level implements the actor's observer interfaces and turns every signal
// into an Event for the sink passed to Load. Transports and the journal
// consume those events in place of sound cues.
//
// A Level is driven by a single goroutine: Apply for player intents and
// Tick once per frame.
package level
