package output

// CheckOutput is the JSON output of the check command.
type CheckOutput struct {
	Targets []CheckResult `json:"targets"`
	Failed  int           `json:"failed"`
}

// CheckResult is the check outcome of one target.
type CheckResult struct {
	Target   string   `json:"target"`
	Kind     string   `json:"kind"`
	OK       bool     `json:"ok"`
	Error    string   `json:"error,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// PathOutput is the JSON output of the path command.
type PathOutput struct {
	Target  string     `json:"target"`
	Columns []string   `json:"columns"`
	Joins   []JoinInfo `json:"joins"`
}

// JoinInfo is one step of a version pointer join chain.
type JoinInfo struct {
	Alias      string `json:"alias"`
	Table      string `json:"table"`
	Column     string `json:"column"`
	LastColumn string `json:"last_column"`
	PrevAlias  string `json:"prev_alias,omitempty"`
	PrevColumn string `json:"prev_column,omitempty"`
}

// RenderOutput is the JSON output of the render command.
type RenderOutput struct {
	Target string     `json:"target"`
	Files  []FileInfo `json:"files"`
}

// FileInfo is one generated SQL file.
type FileInfo struct {
	Path string `json:"path"`
	SQL  string `json:"sql,omitempty"`
}

// GenerateOutput is the JSON output of the generate command.
type GenerateOutput struct {
	RunID   string          `json:"run_id"`
	Status  string          `json:"status"`
	Error   string          `json:"error,omitempty"`
	Levels  [][]string      `json:"levels"`
	Targets []GeneratedInfo `json:"targets"`
}

// GeneratedInfo is the generation outcome of one target.
type GeneratedInfo struct {
	Target     string   `json:"target"`
	Status     string   `json:"status"`
	Files      []string `json:"files,omitempty"`
	Hash       string   `json:"hash,omitempty"`
	Error      string   `json:"error,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}

// ListOutput is the JSON output of the list command.
type ListOutput struct {
	Schema  string       `json:"schema"`
	Targets []TargetInfo `json:"targets"`
	Tables  int          `json:"tables"`
}

// TargetInfo describes one generation target.
type TargetInfo struct {
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	GenerateType string   `json:"generate_type"`
	Columns      []string `json:"columns"`
	Sources      []string `json:"sources"`
	Dependencies []string `json:"dependencies"`
	Dependents   []string `json:"dependents"`
	LastStatus   string   `json:"last_status,omitempty"`
}

// GraphOutput is the JSON output of the graph command.
type GraphOutput struct {
	Levels []GraphLevel `json:"levels"`
	Nodes  int          `json:"nodes"`
	Edges  int          `json:"edges"`
}

// GraphLevel is one execution level.
type GraphLevel struct {
	Level   int         `json:"level"`
	Targets []GraphNode `json:"targets"`
}

// GraphNode is a target with its direct neighbors.
type GraphNode struct {
	Name       string   `json:"name"`
	DependsOn  []string `json:"depends_on"`
	Dependents []string `json:"dependents"`
}

// HistoryOutput is the JSON output of the history command.
type HistoryOutput struct {
	Runs []RunInfo `json:"runs"`
}

// RunInfo is one past generation run.
type RunInfo struct {
	ID          string          `json:"id"`
	Environment string          `json:"environment"`
	Status      string          `json:"status"`
	StartedAt   string          `json:"started_at"`
	CompletedAt string          `json:"completed_at,omitempty"`
	Error       string          `json:"error,omitempty"`
	Targets     []GeneratedInfo `json:"targets"`
}

// MacrosOutput is the JSON output of the macros command.
type MacrosOutput struct {
	Namespaces []MacroInfo `json:"namespaces"`
}

// MacroInfo is one macro namespace.
type MacroInfo struct {
	Namespace string         `json:"namespace"`
	FilePath  string         `json:"file_path"`
	Functions []FunctionInfo `json:"functions"`
}

// FunctionInfo is one macro function.
type FunctionInfo struct {
	Name      string   `json:"name"`
	Args      []string `json:"args"`
	Docstring string   `json:"docstring,omitempty"`
	Line      int      `json:"line"`
}
