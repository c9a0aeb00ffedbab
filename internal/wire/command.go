package wire

// CommandKind discriminates the command union carried inside a frame.
type CommandKind uint8

const (
	KindSpanAlloc CommandKind = iota
	KindSpanInit
	KindSpanFollows
	KindSpanValues
	KindEvent
	KindSpanEnter
	KindSpanExit
	KindSpanFree
	KindProject
	KindTerminate
)

func (k CommandKind) String() string {
	switch k {
	case KindSpanAlloc:
		return "SpanAlloc"
	case KindSpanInit:
		return "SpanInit"
	case KindSpanFollows:
		return "SpanFollows"
	case KindSpanValues:
		return "SpanValues"
	case KindEvent:
		return "Event"
	case KindSpanEnter:
		return "SpanEnter"
	case KindSpanExit:
		return "SpanExit"
	case KindSpanFree:
		return "SpanFree"
	case KindProject:
		return "Project"
	case KindTerminate:
		return "Terminate"
	default:
		return "Unknown"
	}
}

// Command is implemented by every member of the command union. Kind lets
// callers switch without a type assertion when only the tag is needed
// (e.g. for logging or metrics).
type Command interface {
	Kind() CommandKind
}

// SpanAllocCmd declares a span definition.
type SpanAllocCmd struct {
	ID       uint32
	Metadata Metadata
}

func (SpanAllocCmd) Kind() CommandKind { return KindSpanAlloc }

// SpanInitCmd begins an instance, optionally setting its parent.
type SpanInitCmd struct {
	Span    SpanID
	Parent  *SpanID
	Message *string
	Values  ValueSet
}

func (SpanInitCmd) Kind() CommandKind { return KindSpanInit }

// SpanFollowsCmd re-parents Span under the parent of Follows.
type SpanFollowsCmd struct {
	Span    SpanID
	Follows SpanID
}

func (SpanFollowsCmd) Kind() CommandKind { return KindSpanFollows }

// SpanValuesCmd extends an instance's values and optionally replaces its
// message.
type SpanValuesCmd struct {
	Span    SpanID
	Message *string
	Values  ValueSet
}

func (SpanValuesCmd) Kind() CommandKind { return KindSpanValues }

// EventCmd attaches an event to a span instance, or to the synthetic root
// when Span is nil.
type EventCmd struct {
	Span            *SpanID
	Metadata        Metadata
	TimeUnixSeconds int64
	Message         *string
	Values          ValueSet
}

func (EventCmd) Kind() CommandKind { return KindEvent }

// SpanEnterCmd marks an instance active.
type SpanEnterCmd struct {
	Span SpanID
}

func (SpanEnterCmd) Kind() CommandKind { return KindSpanEnter }

// SpanExitCmd marks an instance inactive and records its duration.
type SpanExitCmd struct {
	Span     SpanID
	Duration Duration
}

func (SpanExitCmd) Kind() CommandKind { return KindSpanExit }

// SpanFreeCmd ends an instance's lifetime.
type SpanFreeCmd struct {
	Span SpanID
}

func (SpanFreeCmd) Kind() CommandKind { return KindSpanFree }

// ProjectCmd carries one-time session metadata about the target process.
type ProjectCmd struct {
	AppName     string
	Name        string
	Version     string
	CommandLine string
	Target      TargetInfo
	CPU         *CPUInfo
}

func (ProjectCmd) Kind() CommandKind { return KindProject }

// TerminateCmd announces end-of-stream.
type TerminateCmd struct{}

func (TerminateCmd) Kind() CommandKind { return KindTerminate }
