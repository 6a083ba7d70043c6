// Package marshal provides:
//
// - Schema-driven, bidirectional marshaling (Marshal with Output / Input directions)
// - Field descriptors with defaults, input-required checks and validate hooks
// - Built-in fields: Passthrough, String, Integer, Boolean, Float, Arbitrary, Fixed/Price,
//   Capitalize, FormattedString, URL, DateTime, Nested, List, CommaSeparatedList
// - A stable error model via *MarshallingError (Code, JSON Pointer Path, Message)
// - Dotted-path value lookup over maps, slices, structs and custom Sources
//
// Design policy:
// - Keep the engine in the root package; it is pure and stateless per call.
// - HTTP glue lives in middleware/ and routes/, body codecs in representation/,
//   YAML schema files in declare/, value codecs in codec/ and the CLI in cmd/marshal.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//  s := marshal.NewSchema().
//      Field("name", marshal.String()).
//      Field("age", marshal.Integer()).
//      Field("tags", marshal.CommaSeparatedList(marshal.String())).
//      MustBuild()
//
//  out, err := marshal.MarshalOutput(user, s)   // *marshal.OrderedMap
//  in, err := marshal.MarshalInput(body, s)     // map[string]any
//
package marshal
