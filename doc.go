// Package tgthrottle paces calls to the Telegram Bot API so that no two
// of them start closer together than a fixed delay, however many
// goroutines share the client.
//
// # Quick start
//
//	api, err := botapi.Build(token)
//	if err != nil {
//		return err
//	}
//
//	c, err := tgthrottle.New(api, time.Second, gate.WithName("bot"))
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	me, err := c.GetMe(ctx)
//
// Every method runs through one [gate.Gate] and returns exactly what the
// underlying call returned. The delay is charged after failures too.
//
// [Client.GetUpdates] is not gated. A long poll limits itself through its
// timeout and may run while other calls wait for their turn.
//
// Calls the Client has no method for can share the same schedule via
// [Execute]:
//
//	ok, err := tgthrottle.Execute(ctx, c, "testApi", func(ctx context.Context, api tgthrottle.API) (bool, error) {
//		_, err := api.GetMe(ctx)
//		return err == nil, err
//	})
package tgthrottle
