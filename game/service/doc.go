// Package service is the layer every transport talks to.
//
// GameService owns the running levels of all sessions. It loads levels
// through a ConfigManager and stores sessions through a SessionManager.
// Tick drives the levels one frame at a time. The events each operation
// produces go three ways:
//   - back to the caller in the result
//   - to a Publisher (the websocket hub)
//   - to a Recorder (the session journal)
//
// Usage:
//
//	svc := service.NewGameService(sessions, levels,
//		service.WithTuning(tuning),
//		service.WithPublisher(hub),
//		service.WithRecorder(journal),
//		service.WithLogger(logger),
//	)
//
//	info, err := svc.CreateSession(ctx, "level1")
//	res, err := svc.SendIntent(ctx, info.ID, level.Intent{Action: level.ActionMove, Direction: "east"})
//
// Every level runs under one service mutex. The engine underneath is
// single-threaded.
package service
