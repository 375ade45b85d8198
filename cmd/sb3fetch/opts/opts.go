// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package opts

import (
	"io"
)

// RootOpts contains shared options used by all commands
type RootOpts struct {
	ConfigFile string
	Debug      bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// FetchOpts are the flags of the fetch run. Zero values keep the config file's choice
// unless the flag was set explicitly.
type FetchOpts struct {
	OutputDir       string
	NoAssets        bool
	Partial         string
	MaxJobs         int
	MaxAssetFetches int
	ShowAssets      bool
}
