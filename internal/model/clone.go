package model

// Clone returns a copy of m that shares no memory with it.
func (m Market) Clone() Market {
	if m.Edge != nil {
		edge := *m.Edge
		m.Edge = &edge
	}
	if m.Position != nil {
		pos := m.Position.Clone()
		m.Position = &pos
	}
	if m.Orders != nil {
		orders := make([]Order, len(m.Orders))
		copy(orders, m.Orders)
		m.Orders = orders
	}
	return m
}

// Clone returns a copy of p with its own entry price pointers.
func (p Position) Clone() Position {
	if p.UpAvg != nil {
		v := *p.UpAvg
		p.UpAvg = &v
	}
	if p.DownAvg != nil {
		v := *p.DownAvg
		p.DownAvg = &v
	}
	return p
}

// Clone returns a copy of m with its own StartedAt.
func (m Meta) Clone() Meta {
	if m.StartedAt != nil {
		t := *m.StartedAt
		m.StartedAt = &t
	}
	return m
}

// Clone deep-copies the config, including nested objects and arrays.
func (c BotConfig) Clone() BotConfig {
	if c == nil {
		return nil
	}
	return BotConfig(CloneObject(c))
}

// Clone deep-copies the trend state.
func (t TrendState) Clone() TrendState {
	if t == nil {
		return nil
	}
	return TrendState(CloneObject(t))
}

// Clone returns a copy of e with its own payload.
func (e TradeEvent) Clone() TradeEvent {
	e.Payload = CloneObject(e.Payload)
	return e
}

// CloneObject deep-copies a decoded JSON object. Maps and slices are copied; scalars are
// immutable and shared.
func CloneObject(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneObject(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
