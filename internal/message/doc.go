// Package message decodes and encodes HDF5 object header messages.
//
// An object header is a list of typed messages. Datasets carry a
// [Dataspace], a [Datatype], a [DataLayout] and optionally a
// [FilterPipeline] and [FillValue]. Groups carry either a [SymbolTable]
// (old-style groups) or [Link] messages (new-style groups). Message types
// the reader does not need are kept as [Unknown].
//
// Every message that the test fixture builder emits also implements
// [Serializable].
package message
