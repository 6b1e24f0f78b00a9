// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build !(sqlite_vec && cgo)

package index

const vecEnabled = false
