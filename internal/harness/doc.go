// Package harness runs mapping scenarios: declarative fixtures that load
// object schemas, build an object graph, convert it and check the records.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	specs:
//	  - path/to/objects.cue
//	owner: alice                  # optional, default __defaultOwner__
//	member_policy: truncate       # optional: truncate | skip
//	reference_zone: default       # optional: default | target
//	objects:
//	  - type: Person
//	    values: { id: p1, name: Alice }
//	  - type: Dog
//	    values:
//	      id: d1
//	      owner: { ref: Person/p1 }
//	      friends: [ { ref: Dog/d2 }, null ]
//	      born: { date: "2020-01-02T03:04:05Z" }
//	      photo: { data: "aGk=" }
//	      avatar: { asset: "raw asset bytes" }
//	convert: [Dog/d1]             # optional, default every object
//	export: true                  # optional, also export through a store
//	assertions:
//	  - type: field_set
//	    record: Dog/d1
//	    field: name
//	    value: Rex
//
// Objects are addressed as "Type/key", where key is the rendered primary
// key, or by an explicit id. A value may relate to another object with
// {ref: target} or embed an anonymous one with {object: {type, values}}.
//
// # Assertion Types
//
//   - field_set: the field is present and not cleared, optionally equal to value
//   - field_absent: the field was never set
//   - field_cleared: the field is present and explicitly cleared
//   - references: the field holds references to the given record names, in order
//   - record_name: the record's name
//   - zone: the record's zone name
//   - defect: converting the object reported a configuration defect with code
//   - exported: the export batch converted count records
//
// # Determinism
//
// Conversion involves no clock or randomness. Export batches use a
// fixed batch id and a clock starting at zero, and assets
// declared inline get content-derived URLs, so RunWithGolden snapshots are
// byte-identical between runs.
package harness
