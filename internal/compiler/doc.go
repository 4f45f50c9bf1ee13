// Package compiler turns CUE principles documents into the typed
// principles consumed by the cycle runner.
//
// A principles document declares shapes, contexts with their properties,
// and morphs:
//
//	principles: {
//		shape: web: {
//			type: "system.Service"
//			name: "Web"
//			essence: {lang: "go"}
//		}
//		context: deploy: {
//			type: "system.Context"
//			property: owns: {
//				entity:     "entity:web"
//				value:      "db"
//				value_type: "string"
//			}
//		}
//		morph: m1: {
//			kind:              "owns"
//			source:            "entity:web"
//			target:            "entity:db"
//			requires_property: "owns"
//		}
//	}
//
// Compilation uses the CUE Go API directly. Structural problems surface
// as CompileError with source positions; semantic problems (dangling
// references, duplicates) come from Validate; derivation loops among
// morphs come from AnalyzeCycles as warnings.
package compiler
