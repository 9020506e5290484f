// Package websocket streams session state to browsers and accepts intents
// back over the same connection.
//
// A central Hub tracks clients per session. Each connection gets a read pump
// and a write pump goroutine; the hub's Run loop owns registration and fan-out.
//
// Message Protocol:
//
//   - Incoming: {"intent":"move","direction":"north"}, {"intent":"rotate","sign":-1},
//     {"intent":"interact"}
//   - Outgoing: {"session_id":"ab12","event":"state_update","state":{...},"events":[...]}
//     after every service update, and {"event":"intent_result",...} to the
//     sender of an intent.
//
// Clients pick their session with the query parameter ?session=ab12.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	svc := service.NewGameService(sessions, configs, service.WithPublisher(hub))
//	hub.SetIntentHandler(func(ctx context.Context, id string, in level.Intent) (*service.IntentResult, error) {
//		return svc.SendIntent(ctx, id, in)
//	})
//	go hub.Run(ctx)
//
// The hub implements service.Publisher and never blocks the caller: when the
// outbound queue is full, updates are dropped and logged.
package websocket
