// Package layout computes 2D node positions with a damped spring embedder.
//
// Every node repels every other node with magnitude k·r(a)·r(b)/√d, and
// every edge acts as a logarithmic spring c1·ln|d−l0| that pulls linked
// nodes towards the rest length l0. Each step computes all forces from one
// pre-step state, integrates
//
//	vel' = damping · (vel + F·dt)
//	pos' = pos + vel'·dt
//
// and commits all nodes at once. Kinetic energy Σ r·|vel'|² decides
// convergence.
//
// # Termination
//
// A run ends with one [Reason], checked after each commit in this order:
//
//   - [Converged]: energy fell below Config.Epsilon
//   - [Cancelled]: [Engine.Stop] was called or the context ended
//   - [MaxIterations]: the step budget is spent
//
// A step that would produce NaN or infinite state is not committed and the
// run fails with a NUMERIC error.
//
// # Concurrency
//
// A run holds the graph's lease, so only the engine writes node state while
// it is active. Per-node work fans out over Config.Workers goroutines;
// results are identical for any worker count. Readers use
// graph.Graph.State, [Engine.Latest] or a [StepFunc]; all of them see whole
// steps only.
//
//	eng, _ := layout.New(layout.DefaultConfig())
//	run, _ := eng.Start(ctx, g, 10000, func(s layout.Snapshot) {
//	    fmt.Println(s.Step, s.Energy)
//	})
//	res, err := run.Wait()
package layout
