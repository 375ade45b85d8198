/*
Package config loads sb3fetch settings from YAML, HCL, JSON or TOML files.

	            +-------------+
	            |   Config    |
	            | (Settings)  |
	            +------+------+
	                   |
	  +---------+------+-----+---------+
	  |         |            |         |
	+-+--+   +--+--+     +---+--+   +--+--+
	|YAML|   | HCL |     | JSON |   | TOML|
	+----+   +-----+     +------+   +-----+

🎯 Purpose:
- Select a parser by file extension
- Reject unknown fields in every format
- Fill in defaults and check values in Validate

📝 Fields:
- output_dir, no_assets, partial_assets (fail | any | allow)
- max_jobs, max_asset_fetches (0 means unbounded)
- timeout, user_agent, requests_per_second
- allowed_extensions (doublestar globs)
- provider overrides: name, costume_url, sound_url, disabled

🔍 Example (HCL):

	output_dir     = env.HOME
	partial_assets = "any"

	provider "xmw" {
	  costume_url = "https://mirror.example/picture/"
	}
*/
package config
