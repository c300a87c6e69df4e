package domain

import "encoding/json"

// Extra holds JSON object members a document type does not declare, so a
// load followed by a save writes them back unchanged.
type Extra map[string]json.RawMessage

var (
	holdingKeys = []string{"shares", "avg_price", "name", "buy_date"}
	tradeKeys   = []string{"id", "type", "ticker", "name", "shares", "price", "amount",
		"date", "profit", "profit_rate", "reason", "strategy_id"}
)

// SplitExtra returns the members of a JSON object not listed in known.
// Nil is returned when there are none.
func SplitExtra(data []byte, known ...string) (Extra, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(raw, k)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}

// MergeExtra adds extra members to an encoded JSON object. Members already
// present in base win.
func MergeExtra(base []byte, extra Extra) ([]byte, error) {
	if len(extra) == 0 {
		return base, nil
	}

	merged := make(map[string]json.RawMessage, len(extra)+8)
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, known := merged[k]; !known {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// MarshalJSON writes the declared fields plus any preserved unknown ones
func (h Holding) MarshalJSON() ([]byte, error) {
	type plain Holding
	base, err := json.Marshal(plain(h))
	if err != nil {
		return nil, err
	}
	return MergeExtra(base, h.Extra)
}

// UnmarshalJSON reads the declared fields and keeps the rest in Extra
func (h *Holding) UnmarshalJSON(data []byte) error {
	type plain Holding
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := SplitExtra(data, holdingKeys...)
	if err != nil {
		return err
	}
	*h = Holding(p)
	h.Extra = extra
	return nil
}

// MarshalJSON writes the declared fields plus any preserved unknown ones
func (t Trade) MarshalJSON() ([]byte, error) {
	type plain Trade
	base, err := json.Marshal(plain(t))
	if err != nil {
		return nil, err
	}
	return MergeExtra(base, t.Extra)
}

// UnmarshalJSON reads the declared fields and keeps the rest in Extra
func (t *Trade) UnmarshalJSON(data []byte) error {
	type plain Trade
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := SplitExtra(data, tradeKeys...)
	if err != nil {
		return err
	}
	*t = Trade(p)
	t.Extra = extra
	return nil
}
