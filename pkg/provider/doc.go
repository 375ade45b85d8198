/*
Package provider defines how a locator becomes a project payload.

	      locator
	         |
	+--------v---------+
	|     Registry     |  ordered patterns, first match wins
	+--------+---------+
	         | Selection{ID, Provider}
	+--------v---------+
	|     Provider     |  one per platform, built once
	+--------+---------+
	         |
	 FetchMetadata -> (payload fetch) -> Decode

🎯 Purpose:
- Map locators to platform strategies through a named `id` capture group
- Describe each platform: display name, referer and asset endpoints
- Carry per-job knowledge in Project

⚡ Rules:
- Providers hold no per-job state; everything a job learns lives in its Project
- Decode is pure and never performs I/O
- A provider whose factory failed reports that error on every selection

🔍 Example:

	reg := provider.NewRegistry()
	reg.MustRegister(`scratch\.mit\.edu/projects/(?P<id>[0-9]+)`, scratch.Factory(client, scratch.Options{}))

	sel, err := reg.Select(ctx, "https://scratch.mit.edu/projects/10128407")
	project := &provider.Project{ID: sel.ID}
	err = sel.Provider.FetchMetadata(ctx, project)
*/
package provider
