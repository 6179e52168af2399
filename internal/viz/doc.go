// Package viz renders tracking runs in the terminal.
//
// Three surfaces, all string-producing and side-effect free except [Live]:
//
//   - [Canvas]: braille pixel grid, 2x4 dots per character
//   - [PlanePlot] and [TracePlot]: static plots of finished runs
//   - [Live]: Bubble Tea progress view fed by per-path observers
//
// # Live view
//
// The tracking job runs in its own goroutine; [Live.Observer] hands each
// path an observer that streams progress into the view, and [Live.Finish]
// delivers the final results. Progress events may be dropped under load;
// the final message never is.
package viz
