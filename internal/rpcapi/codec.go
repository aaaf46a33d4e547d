package rpcapi

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/advisor"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/blackjack"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region request
// RequestToStruct encodes an advisory request using the HTTP field names.
func RequestToStruct(req advisor.Request) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"player_total":  req.PlayerTotal,
		"dealer_upcard": req.DealerUpcard,
		"usable_ace":    req.UsableAce,
	})
}

// StructToRequest decodes a request. usable_ace is optional; every present
// field must be an integral number.
func StructToRequest(s *structpb.Struct) (advisor.Request, error) {
	var req advisor.Request
	var err error
	if req.PlayerTotal, err = intField(s, "player_total", true); err != nil {
		return req, err
	}
	if req.DealerUpcard, err = intField(s, "dealer_upcard", true); err != nil {
		return req, err
	}
	if req.UsableAce, err = intField(s, "usable_ace", false); err != nil {
		return req, err
	}
	return req, nil
}

func intField(s *structpb.Struct, name string, required bool) (int, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		if required {
			return 0, fmt.Errorf("missing field %s", name)
		}
		return 0, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("field %s: want number", name)
	}
	if n.NumberValue != math.Trunc(n.NumberValue) || math.Abs(n.NumberValue) > math.MaxInt32 {
		return 0, fmt.Errorf("field %s: want integer, got %v", name, n.NumberValue)
	}
	return int(n.NumberValue), nil
}

// #endregion request

// #region advice
// AdviceToStruct encodes advice with the same shape as the HTTP response.
func AdviceToStruct(a advisor.Advice) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"advice": a.Advice.String(),
		"q": map[string]any{
			"Hit":   a.Q.Hit,
			"Stand": a.Q.Stand,
		},
		"state":  []any{a.State[0], a.State[1], a.State[2]},
		"source": a.Source,
	})
}

// StructToAdvice decodes advice produced by AdviceToStruct.
func StructToAdvice(s *structpb.Struct) (advisor.Advice, error) {
	f := s.GetFields()
	var a advisor.Advice

	act, err := blackjack.ParseAction(f["advice"].GetStringValue())
	if err != nil {
		return a, fmt.Errorf("decode advice: %w", err)
	}
	a.Advice = act

	q := f["q"].GetStructValue().GetFields()
	a.Q = advisor.QValues{Hit: q["Hit"].GetNumberValue(), Stand: q["Stand"].GetNumberValue()}

	state := f["state"].GetListValue().GetValues()
	if len(state) != 3 {
		return a, fmt.Errorf("decode advice: state has %d elements", len(state))
	}
	for i, v := range state {
		a.State[i] = int(v.GetNumberValue())
	}
	a.Source = f["source"].GetStringValue()
	return a, nil
}

// #endregion advice
