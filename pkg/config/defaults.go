package config

// Lattice defaults.
const (
	DefaultLatticeMode = ModeLift
	DefaultLatticeSize = 2
)

// Pipeline defaults. Zero workers means one partition per available CPU.
const (
	DefaultPipelineWorkers   = 0
	DefaultPipelineBatchSize = 1024
)

// Input defaults.
const (
	DefaultInputFormat    = InputCSV
	DefaultInputDelimiter = ","
)

// Output defaults.
const (
	DefaultOutputFormat = "text"
	DefaultOutputTop    = 0
)

// Logging defaults.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false
)

// Telemetry defaults.
const (
	DefaultTelemetrySampleRatio = 1.0
)

// State defaults.
const (
	DefaultStateDir      = "."
	DefaultStateCodec    = "gob"
	DefaultStateCompress = true
)
