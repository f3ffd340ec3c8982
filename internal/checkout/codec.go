package checkout

import (
	"encoding/json"
	"fmt"
)

type envelope struct {
	Stage Stage           `json:"stage"`
	Data  json.RawMessage `json:"data"`
}

// Encode serializes a state for the session store.
func Encode(s State) (json.RawMessage, error) {
	if s == nil {
		return nil, nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode checkout state: %w", err)
	}
	return json.Marshal(envelope{Stage: s.Stage(), Data: data})
}

// Decode restores a state. Empty input decodes to a nil state.
func Decode(raw json.RawMessage) (State, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode checkout envelope: %w", err)
	}

	var (
		s   State
		err error
	)
	switch env.Stage {
	case StageReviewingCart:
		var st ReviewingCart
		err = json.Unmarshal(env.Data, &st)
		s = st
	case StageEnteringAddress:
		var st EnteringAddress
		err = json.Unmarshal(env.Data, &st)
		s = st
	case StageChoosingPayment:
		var st ChoosingPayment
		err = json.Unmarshal(env.Data, &st)
		s = st
	case StageConfirmed:
		var st Confirmed
		err = json.Unmarshal(env.Data, &st)
		s = st
	default:
		return nil, fmt.Errorf("unknown checkout stage %q", env.Stage)
	}
	if err != nil {
		return nil, fmt.Errorf("decode checkout %s: %w", env.Stage, err)
	}
	return s, nil
}
