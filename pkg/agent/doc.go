// Package agent runs the guarded step loop: the oracle proposes a plan, the
// gate checks it, the dispatcher executes its calls and every result is
// validated again before it reaches memory or the caller.
//
// Invariants:
// - A plan that fails a blocking rule is never dispatched.
// - Tool results are recorded in the plan's declared order.
// - Runs for the same session id are serialized.
// - Run recovers every failure into a Result; it never panics on tool input.
//
// Usage:
//
//	runner, _ := agent.NewRunner(agent.Config{
//		Gate:       g,
//		Dispatcher: d,
//		Oracle:     o,
//	})
//	result, _ := runner.Run(ctx, "", "weather in Paris")
//	fmt.Println(result.Answer)
package agent
