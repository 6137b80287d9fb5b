package chart

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rickgao/botwatch/internal/model"
)

// Marker colors.
const (
	ColorBuy     = "#26a69a"
	ColorSell    = "#ef5350"
	ColorHedge   = "#42a5f5"
	ColorMerge   = "#ab47bc"
	ColorReduce  = "#ffa726"
	ColorNeutral = "#9e9e9e"
)

type markerStyle struct {
	color string
	shape string
}

var markerStyles = map[string]markerStyle{
	"entry":   {ColorBuy, "arrowUp"},
	"hedge":   {ColorHedge, "circle"},
	"merge":   {ColorMerge, "square"},
	"reduce":  {ColorReduce, "arrowDown"},
	"abandon": {ColorNeutral, "circle"},
}

// MarkerFor maps a trade event to a marker. Fills take their color and arrow from the
// outcome they bought.
func MarkerFor(ev model.TradeEvent) Marker {
	style, ok := markerStyles[ev.Type]
	if !ok {
		style = markerStyle{ColorNeutral, "circle"}
	}

	if ev.Type == "fill" {
		switch outcomeOf(ev.Payload) {
		case model.OutcomeDown:
			style = markerStyle{ColorSell, "arrowDown"}
		default:
			style = markerStyle{ColorBuy, "arrowUp"}
		}
	}

	return Marker{
		Time:  ev.Time.Unix(),
		Color: style.color,
		Shape: style.shape,
		Text:  markerText(ev),
	}
}

// Markers builds markers for one market's events (all markets if slug is empty),
// sorted by time as chart libraries require.
func Markers(events []model.TradeEvent, slug string) []Marker {
	out := make([]Marker, 0, len(events))
	for _, ev := range events {
		if slug != "" && ev.MarketSlug != slug {
			continue
		}
		out = append(out, MarkerFor(ev))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time < out[j].Time
	})
	return out
}

func outcomeOf(payload map[string]any) model.Outcome {
	for _, k := range []string{"outcome", "side"} {
		if s, ok := payload[k].(string); ok {
			switch strings.ToLower(s) {
			case "down", "no":
				return model.OutcomeDown
			case "up", "yes":
				return model.OutcomeUp
			}
		}
	}
	return model.OutcomeUp
}

func markerText(ev model.TradeEvent) string {
	text := strings.ToUpper(ev.Type)
	if text == "" {
		text = "EVENT"
	}
	if size, ok := ev.Payload["size"].(float64); ok && size > 0 {
		text = fmt.Sprintf("%s %g", text, size)
	}
	if price, ok := ev.Payload["price"].(float64); ok && price > 0 {
		text = fmt.Sprintf("%s @%g", text, Percent(price))
	}
	return text
}
