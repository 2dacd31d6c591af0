// Package types provides shared type definitions for the colstore engine.
//
// This package defines the data model that flows between callers and the
// storage engine: collection schemas, records, queries, filters, and the
// vector-search types.
//
// # Core Types
//
// CollectionSchema describes the logical shape of a collection. It is
// produced externally (by a code generator, a config file, or a reflection
// step) and consumed by the engine's EnsureSchema:
//
//	schema := &types.CollectionSchema{
//	    Collection: "users",
//	    Fields: []types.SchemaField{
//	        {Name: "email", Type: types.FieldString, Unique: true},
//	        {Name: "age", Type: types.FieldNumber, Nullable: true},
//	    },
//	}
//
// Record is the envelope returned by every read path. Its Data map always
// contains the record id in addition to the top-level ID field; the
// created-at timestamp is always the originally stored value.
//
// # Queries and Filters
//
// Query combines a filter, sort order, keyset cursor, and offset/limit
// pagination. Filters map field names to conditions built from a closed
// operator vocabulary:
//
//	q := types.Query{
//	    Collection: "users",
//	    Filter:     types.Filter{"age": {types.Gte(18)}},
//	    Sort:       []types.SortSpec{{Field: "email"}},
//	    Limit:      50,
//	}
//
// Filter also implements the JSON wire format spoken by remote callers:
// a field maps to either a literal (equality) or an operator object such
// as {"gte": 18}. Unknown operator names are a decode error.
package types
