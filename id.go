package docket

import "github.com/xraph/docket/id"

// ID is the primary identifier type for all Docket entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
