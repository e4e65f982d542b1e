// Package strategy holds the watering strategies and the store that owns
// them.
//
// A strategy maps each moisture state to a watering duration in seconds.
// Strategies live in a document that names the active one:
//
//	activeStrategy: default
//	strategies:
//	  default:
//	    name: Default
//	    durations: {thirsty: 5, moist: 2, overwatered: 0, unknown: 2}
//
// Every definition must give a duration for all four states; incomplete
// definitions are rejected when the document is decoded, never at lookup.
//
// The key "default" is always resolvable. If the document does not define
// it, a placeholder that waters nothing is used.
package strategy
