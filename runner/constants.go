package runner

// External tool defaults
const (
	DefaultNinjaBinary      = "ninja"
	DefaultPythonBinary     = "python3"
	DefaultPerfReportScript = "tools/integration/generate_perf_report.py"

	// ninja arguments
	ChangeDirFlag = "-C"

	// report generator arguments
	SaveFlag    = "--save"
	CompareFlag = "--compare"
)
