package scene

// Small builders for style-spec expressions.

func get(prop string) []any { return []any{"get", prop} }

func eq(a, b any) []any { return []any{"==", a, b} }

func coalesce(prop string, fallback any) []any {
	return []any{"coalesce", get(prop), fallback}
}

// byZoom interpolates linearly over zoom; stops alternate zoom, value.
func byZoom(stops ...any) []any {
	return append([]any{"interpolate", []any{"linear"}, []any{"zoom"}}, stops...)
}

// byProp interpolates linearly over a numeric feature property.
func byProp(prop string, stops ...any) []any {
	return append([]any{"interpolate", []any{"linear"}, coalesce(prop, 0)}, stops...)
}

// isSet matches features whose boolean property is true.
func isSet(prop string) []any { return eq(coalesce(prop, false), true) }

// when picks onTrue for features matching cond.
func when(cond []any, onTrue, onFalse any) []any {
	return []any{"case", cond, onTrue, onFalse}
}

func heatColor(r, g, b int) []any {
	rgba := func(a float64) string {
		return "rgba(" + itoa(r) + "," + itoa(g) + "," + itoa(b) + "," + ftoa(a) + ")"
	}
	return []any{
		"interpolate", []any{"linear"}, []any{"heatmap-density"},
		0, "rgba(0,0,0,0)",
		0.2, rgba(0.25),
		0.4, rgba(0.45),
		0.6, rgba(0.65),
		0.8, rgba(0.85),
		1, rgba(1),
	}
}
