// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for patchkit.
//
// Configuration is loaded from a single file specified by either the
// PATCHKIT_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no automatic file search.
//
// The file may carry profile sections (desktop, constrained) that
// override base values when [Config].Profile matches. The constrained
// profile defaults to three workers so a patch run fits on small
// machines; desktop defaults to twelve.
//
// Path fields support ${HOME}, ${PATCHKIT_BASE}, and ${VAR:-default}
// expansion after loading.
//
// This package depends on no other patchkit packages.
package config
