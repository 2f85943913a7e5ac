// Package sched provides the cooperative scheduler the loom runtime defers
// work onto, and a Future type for values that resolve asynchronously.
//
// The scheduler is deterministic by default: its clock is virtual and tasks
// only run when the owner calls Flush or Advance. Run attaches it to the wall
// clock for long-running processes.
//
//	s := sched.New()
//	s.After(50*time.Millisecond, func() { fmt.Println("late") })
//	s.Microtask(func() { fmt.Println("soon") })
//	s.Flush()                       // soon
//	s.Advance(50 * time.Millisecond) // late
package sched
