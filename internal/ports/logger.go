package ports

import "github.com/parcelops/shipledger/pkg/log"

// Logger is the structured logging port. Aliased from pkg/log so internal
// packages share one vocabulary with the public surface.
type Logger = log.Logger

// Field is a structured log field.
type Field = log.Field

// Field constructors re-exported for call-site brevity.
var (
	String   = log.String
	Int      = log.Int
	Int64    = log.Int64
	Float64  = log.Float64
	Bool     = log.Bool
	Duration = log.Duration
	Err      = log.Err
	Any      = log.Any
)
