/*
Package status carries job progress from the pipeline to the console.

	job 0 ─┐
	job 1 ─┼─ Emit ─> Reporter ─(one goroutine)─> Board ─> console sink
	job n ─┘

🎯 Purpose:
- Name the stages of a job and the legal moves between them
- Multiplex events from many jobs into one ordered stream per job
- Keep the latest state of every job for the end of run summary
- Format events as single console lines

⚡ Stages:

	Idle -> MetadataFetching -> ContentFetching -> Decoding -> Assembling -> Done
	  any working stage -> Failed | Canceled

Every job emits exactly one transition per stage it enters and ends in
exactly one of Done, Failed or Canceled.

🔍 Example:

	board := status.NewBoard(console)
	reporter := status.NewReporter(board, 64)
	defer reporter.Close()

	reporter.Emit(status.Event{Job: 0, Type: status.EventTransition, Stage: status.StageDecoding})
*/
package status
