package config

// KernelFileExtensions are the recognized kernel module file suffixes.
var KernelFileExtensions = []string{".kernel.yaml", ".kernel.yml", ".kernel.json"}

// Version is reported by `funxc version` and mixed into cache keys.
const Version = "0.4.0"

// CodegenVersion changes whenever generated output changes shape.
const CodegenVersion = "v3"

// Reserved definition names
const (
	EntryPointName = "main"
	TypedSuffix    = "_typed"
	SSASuffix      = "_ssa"
	ClauseInfix    = "_clause_"
)

// Depth budgets for recursive lowering.
const (
	CgTypeDepthBudget = 64
	MirDepthBudget    = 64
)

// Typed backend names
const (
	BackendSSA        = "ssa"
	BackendStructural = "structural"
)

// Output kinds
const (
	KindProgram = "program"
	KindLibrary = "library"
)

// Built-in type names understood by the closedness lattice
const (
	IntTypeName      = "Int"
	FloatTypeName    = "Float"
	BoolTypeName     = "Bool"
	TextTypeName     = "Text"
	StringTypeName   = "String"
	UnitTypeName     = "Unit"
	DateTimeTypeName = "DateTime"
	ListTypeName     = "List"
)

// RuntimeModulePath is the module providing the runtime of generated code.
const RuntimeModulePath = "github.com/funvibe/funxc"

// RuntimeImportPath is imported by every generated file.
const RuntimeImportPath = RuntimeModulePath + "/pkg/rt"

// GoVersion is written into the go.mod of built programs.
const GoVersion = "1.25"

// DefaultLibraryPackage names generated libraries when no package is configured.
const DefaultLibraryPackage = "kernel"

// ConfigFileNames are searched for by FindConfig, in order.
var ConfigFileNames = []string{"funxc.yaml", "funxc.yml"}
