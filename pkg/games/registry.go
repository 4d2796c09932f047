// Copyright (c) 2026 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/chimera-project/chimera.
//
// SPDX-License-Identifier: Apache-2.0

// Package games bundles the plug-in games that ship with chimera. They
// double as reference implementations of the authoring contract.
package games

import "github.com/chimera-project/chimera/pkg/authoring"

// Registry maps the loadable game names to their factories. The server
// command resolves --load-game arguments against it.
var Registry = map[string]authoring.Factory{
	"PlayerOneWins": NewPlayerOneWins,
	"Chicken":       NewChicken,
	"ConnectM":      NewConnectM,
}
