/*
Package sb3 reads project manifests and writes project archives.

	+-------------+       +-------------+
	|  Manifest   |       |   Writer    |
	| (parsing)   |       | (zip, once) |
	+------+------+       +------+------+
	       |                     |
	  UniqueAssets          WriteManifest
	       |                     |
	       +------> Add <--------+

🎯 Purpose:
- Parse project.json and list the costumes and sounds it references
- Report extensions the standard runtime does not ship
- Write a zip archive whose entries are unique and start with project.json

⚡ Invariants:
- The manifest is the first entry of every archive
- An entry name is written at most once; repeated names are ignored
- The archive is sealed once, after which writes fail

🔍 Example:

	m, err := sb3.ParseManifest(manifest)
	assets, err := m.UniqueAssets()

	w := sb3.NewWriter(file)
	err = w.WriteManifest(manifest)
	added, err := w.Add(ctx, assets[0].Filename, data)
	err = w.Close()
*/
package sb3
