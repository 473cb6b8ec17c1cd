package store

// Run statuses.
const (
	StatusRunning = "running"
	StatusPassed  = "passed"
	StatusFailed  = "failed"
)

// Run is one execution of one test.
type Run struct {
	ID            string
	Test          string
	Index         int
	ProgramDigest string
	TimeUnit      string
	EngineVersion string
	IRVersion     string
	Status        string

	// Set when Status is StatusFailed.
	ErrorKind    string
	ErrorMessage string
	// Unsettled lists the signals still changing when the run did not
	// converge. Empty otherwise.
	Unsettled []string
}

// Signal is one row of a run's signal table.
type Signal struct {
	ID     int
	Scope  string
	Name   string
	Input  bool
	Driven bool
}

// QualifiedName returns scope.name.
func (s Signal) QualifiedName() string {
	return s.Scope + "." + s.Name
}

// Change is a stored value-change event. Value is in ir.FormatValue form.
type Change struct {
	Seq     int64
	Instant uint64
	Signal  string
	Value   string
}

// Assertion is a stored assertion check.
type Assertion struct {
	Seq       int64
	Instant   uint64
	Line      int
	Source    string
	Scope     string
	Expected  string
	Actual    string
	Passed    bool
	Invariant bool
}
