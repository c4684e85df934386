// Copyright 2026 The axisdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package axisdb is an embedded, single-file, coordinate-indexed attribute
// store.
//
// Each point is identified by a primitive value (its identity) and given a
// dense integer coordinate on a central axis. Every named attribute
// (dimension) interns the distinct values it has seen, and a sparse
// per-dimension mapping records which coordinate holds which value id. A
// value shared by many points is stored once, so rewriting it with
// UpdateDimensionValue changes it for all of them at once.
//
//	db, err := axisdb.Open("people.axis")
//	...
//	db.Insert(value.Text("Domas"), axisdb.Attributes{"age": value.Int(28)})
//	db.Insert(value.Text("Jonas"), axisdb.Attributes{"age": value.Int(28)})
//	db.UpdateDimensionValue("age", value.Int(28), value.Int(29))
//	age, _ := db.Lookup(value.Text("Jonas"), "age") // 29
//	err = db.Close() // saves
//
// A DB is safe for concurrent use; every operation runs under one lock.
package axisdb
