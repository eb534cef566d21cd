// Package ir provides the record value model and schema types for cloudrec.
//
// This package contains type definitions and their canonical encoding only.
// All other internal packages import ir; ir imports nothing internal. This
// keeps the record model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Record field values form a sealed set (IRValue); callers cannot add variants
//   - An explicit clear (IRNull) is a stored value, distinct from an absent field
//   - Canonical encoding never emits JSON floats or nulls; doubles, timestamps
//     and bytes are carried as tagged strings
//   - All JSON tags use snake_case
package ir
