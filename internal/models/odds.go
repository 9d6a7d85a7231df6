package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// AmericanOdds is a moneyline price. Probabilities of exactly 0 or 1 map to
// +Inf and -Inf respectively.
type AmericanOdds float64

// IsDegenerate reports whether the price is one of the infinite sentinels
func (o AmericanOdds) IsDegenerate() bool {
	return math.IsInf(float64(o), 0)
}

func (o AmericanOdds) String() string {
	switch {
	case math.IsInf(float64(o), 1):
		return "+inf"
	case math.IsInf(float64(o), -1):
		return "-inf"
	case o > 0:
		return fmt.Sprintf("+%d", int64(o))
	default:
		return fmt.Sprintf("%d", int64(o))
	}
}

func (o AmericanOdds) MarshalJSON() ([]byte, error) {
	if o.IsDegenerate() {
		return json.Marshal(o.String())
	}
	return []byte(strconv.FormatInt(int64(o), 10)), nil
}

func (o *AmericanOdds) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch s {
		case "+inf", "inf":
			*o = AmericanOdds(math.Inf(1))
		case "-inf":
			*o = AmericanOdds(math.Inf(-1))
		default:
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("invalid american odds %q", s)
			}
			*o = AmericanOdds(v)
		}
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid american odds %s: %w", string(data), err)
	}
	*o = AmericanOdds(v)
	return nil
}
