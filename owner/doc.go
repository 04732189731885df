// Package owner provides manually reference-counted resource ownership.
// An Owner holds a resource and its Disposer, counts the strong handles
// referencing it, and disposes of the resource exactly once when the last
// strong handle is closed. Weak handles observe the resource without keeping
// it alive.
package owner
