package engine

// state is a step of the scrape fallback chain
type state int

const (
	stateStart state = iota
	stateStaticFetch
	stateStaticExtract
	stateRenderFetch
	stateRenderExtract
	stateDone
)

func (s state) String() string {
	switch s {
	case stateStart:
		return "START"
	case stateStaticFetch:
		return "STATIC_FETCH"
	case stateStaticExtract:
		return "STATIC_EXTRACT"
	case stateRenderFetch:
		return "RENDER_FETCH"
	case stateRenderExtract:
		return "RENDER_EXTRACT"
	case stateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}
