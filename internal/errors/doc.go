// Package errors provides structured, coded errors for loom.
//
// Every error raised by the runtime for a caller mistake carries a short code
// (for example "L001") that maps to a registered template with a message, a
// longer explanation and a category:
//   - construction: malformed descriptions detected while materializing
//   - runtime: failures during re-render, effects or teardown
//   - config: invalid loom.yaml or environment values
//   - protocol: malformed commit-record frames
//   - cli: command line usage errors
//
// # Usage
//
//	err := errors.New("L001").
//	    WithDetail(fmt.Sprintf("ref of type %T", v)).
//	    WithSuggestion("Pass a vnode.RefFunc or a *vnode.RefObject")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR L001: Invalid ref
//	//
//	//   ref of type int
//	//
//	//   Hint: Pass a vnode.RefFunc or a *vnode.RefObject
//
// Errors wrap their cause, so errors.Is and errors.As from the standard
// library see through them.
package errors
