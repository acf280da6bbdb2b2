// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package plan loads edit plans: YAML files listing the changes one
// patch run makes. Each edit names a path spec and what to do to the
// node it resolves to:
//
//	edits:
//	  - name: swap-model
//	    path: content/Model/Hero.sbfres@YAZ0@RES@model.bin
//	    replace_with: files/hero-model.bin
//	  - name: fix-header
//	    path: content/Pack/Title.pack@SARC@Layout/title.bin
//	    write:
//	      offset: 16
//	      data: "00ff00ff"
//	    after: [swap-model]
//
// Plans may also be written as JSON with comments (.json or .jsonc).
//
// [Plan.Apply] registers the edits on a session. Edits run in plan
// order within a node; "after" orders edits on unrelated branches.
package plan
