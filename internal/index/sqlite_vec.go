// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build sqlite_vec && cgo

package index

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

// vecEnabled lets SQLiteIndex rank inside SQLite with vec_distance_cosine.
const vecEnabled = true

func init() {
	vec.Auto()
}
