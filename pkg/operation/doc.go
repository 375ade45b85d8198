/*
Package operation runs acquisition jobs: one job per locator, each turning a
platform project into a standalone archive.

	               +----------+
	locators ----> |  Runner  | -- Plan: every locator must match a provider
	               +----+-----+
	                    | one goroutine per job, admission bounded by a semaphore
	      +-------------+-------------+
	      v             v             v
	  +-------+     +-------+     +-------+
	  |  Job  |     |  Job  |     |  Job  |  Idle -> Metadata -> Content
	  +---+---+     +---+---+     +---+---+       -> Decoding -> Assembling
	      |                                       -> Done | Failed | Canceled
	      v
	+-----------+   errgroup fan-out    +------------+
	| Assembler | --------------------> | sb3.Writer | project.json first
	+-----------+   one fetch per asset +------------+

🎯 Purpose:
- Drive every job through its stages and report each transition as a status.Event
- Assemble archives from a decoded payload and the provider's asset endpoints
- Keep jobs independent: one failing or slow job never affects another

🔄 Flow:
1. Runner.Plan rejects the whole run when any locator is unknown
2. Runner.Run starts the jobs and multiplexes their events through one status.Reporter
3. A Job selects its provider, fetches metadata and content, decodes, assembles
4. Run returns a Summary once every job is terminal

⚡ Cancellation:
A canceled context is observed before every stage, inside every request and
inside every asset fetch. A canceled job ends in StageCanceled, writes nothing
more and removes its incomplete output file.

🧩 Partial assets:
config.PartialFail fails the job when any asset is missing, config.PartialAny
only when every asset is missing, config.PartialAllow never. Skipped assets are
reported as warnings.

🔍 Example:

	runner, err := operation.NewRunner(operation.Options{
		Config:   cfg,
		Registry: registry,
		Fetcher:  transport.New(transport.DefaultOptions()),
		Sink:     console,
	})
	summary, err := runner.Run(ctx, []string{"https://scratch.mit.edu/projects/104"})
*/
package operation
