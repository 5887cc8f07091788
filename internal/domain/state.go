package domain

// State is the lifecycle phase of a live session. StateEnd is terminal:
// no trigger is accepted once a session reaches it.
type State int

const (
	StateLobby State = iota
	StateQuestionCountdown
	StateQuestionOpen
	StateQuestionClose
	StateAnswerShow
	StateFinalResults
	StateEnd
)

var stateNames = map[State]string{
	StateLobby:             "LOBBY",
	StateQuestionCountdown: "QUESTION_COUNTDOWN",
	StateQuestionOpen:      "QUESTION_OPEN",
	StateQuestionClose:     "QUESTION_CLOSE",
	StateAnswerShow:        "ANSWER_SHOW",
	StateFinalResults:      "FINAL_RESULTS",
	StateEnd:               "END",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "UNKNOWN"
}

// AnswersVisible reports whether answer correctness may be shown to
// players in this state.
func (s State) AnswersVisible() bool {
	return s == StateAnswerShow || s == StateFinalResults || s == StateEnd
}

// Trigger is a named event the state machine may act on. The two
// *Elapsed triggers are timer-sourced and can never be requested by a
// caller; ParseTrigger only accepts the manual ones.
type Trigger int

const (
	TriggerNextQuestion Trigger = iota
	TriggerSkipCountdown
	TriggerGoToAnswer
	TriggerGoToFinalResults
	TriggerEnd

	// synthetic, timer-sourced
	TriggerCountdownElapsed
	TriggerQuestionTimeElapsed
)

var triggerNames = map[Trigger]string{
	TriggerNextQuestion:        "NEXT_QUESTION",
	TriggerSkipCountdown:       "SKIP_COUNTDOWN",
	TriggerGoToAnswer:          "GO_TO_ANSWER",
	TriggerGoToFinalResults:    "GO_TO_FINAL_RESULTS",
	TriggerEnd:                 "END",
	TriggerCountdownElapsed:    "COUNTDOWN_ELAPSED",
	TriggerQuestionTimeElapsed: "QUESTION_TIME_ELAPSED",
}

var manualTriggers = map[string]Trigger{
	"NEXT_QUESTION":       TriggerNextQuestion,
	"SKIP_COUNTDOWN":      TriggerSkipCountdown,
	"GO_TO_ANSWER":        TriggerGoToAnswer,
	"GO_TO_FINAL_RESULTS": TriggerGoToFinalResults,
	"END":                 TriggerEnd,
}

func (t Trigger) String() string {
	if n, ok := triggerNames[t]; ok {
		return n
	}
	return "UNKNOWN"
}

// ParseTrigger maps a caller-supplied action name to a manual trigger.
func ParseTrigger(name string) (Trigger, bool) {
	t, ok := manualTriggers[name]
	return t, ok
}
