package visit

// Kind is the type of node being visited.
type Kind int

const (
	Card Kind = iota
	Dashboard
	Collection
	Pulse
	QueryPart
	VisualizationSettings
	TableColumns
	TableColumn
	ColumnSettings
	SeriesSettings
	ClickBehavior
	Parameter
	ParameterMapping
	ParamFields
	ParamValues
	Tabs
	GraphDimensions
)

var kindNames = [...]string{
	Card:                  "CARD",
	Dashboard:             "DASHBOARD",
	Collection:            "COLLECTION",
	Pulse:                 "PULSE",
	QueryPart:             "QUERY_PART",
	VisualizationSettings: "VISUALIZATION_SETTINGS",
	TableColumns:          "TABLE_COLUMNS",
	TableColumn:           "TABLE_COLUMN",
	ColumnSettings:        "COLUMN_SETTINGS",
	SeriesSettings:        "SERIES_SETTINGS",
	ClickBehavior:         "CLICK_BEHAVIOR",
	Parameter:             "PARAMETER",
	ParameterMapping:      "PARAMETER_MAPPING",
	ParamFields:           "PARAM_FIELDS",
	ParamValues:           "PARAM_VALUES",
	Tabs:                  "TABS",
	GraphDimensions:       "GRAPH_DIMENSIONS",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "UNKNOWN"
	}
	return kindNames[k]
}

// Frame is one entry of the visit stack.
type Frame struct {
	Kind Kind
	Node interface{}
}

// Stack is the path from the root object to the node being visited. The
// last frame is the current node.
type Stack []Frame

// Top returns the current frame.
func (s Stack) Top() Frame {
	if len(s) == 0 {
		return Frame{Kind: -1}
	}
	return s[len(s)-1]
}

// Nearest returns the innermost frame of the given kind.
func (s Stack) Nearest(k Kind) (Frame, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Kind == k {
			return s[i], true
		}
	}
	return Frame{}, false
}

// Kinds lists the kinds on the stack, outermost first.
func (s Stack) Kinds() []Kind {
	out := make([]Kind, len(s))
	for i, f := range s {
		out[i] = f.Kind
	}
	return out
}
