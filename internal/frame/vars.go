package frame

import (
	"fmt"
	"sort"
	"strconv"
)

// Vars is the dollar-variable namespace: a flat mapping of fixed keys to
// numbers (float64 or int) and the orientation string. Keys carry no '$';
// the sigil is added when the namespace is handed to the resolver.
type Vars map[string]any

// Recompute derives the full namespace from a configuration. Every key is
// always present: missing positions are 0, inactive or unordered components
// have order 0.
func Recompute(cfg Configuration) Vars {
	orientation := cfg.Orientation
	if orientation == "" {
		orientation = Right
	}

	v := Vars{
		"frame_height":     cfg.Height,
		"frame_width":      FrameWidth,
		"machine_x_offset": cfg.XOffset,
		"machine_y_offset": cfg.YOffset,
		"machine_z_offset": cfg.ZOffset,
		"lock_position":    cfg.LockPosition,
		"lock_y_offset":    cfg.LockYOffset,
		"lock_active":      boolInt(cfg.LockActive),
		"hinge_y_offset":   cfg.HingeYOffset,
		"orientation":      string(orientation),
	}

	for i := 1; i <= PMCount; i++ {
		v[fmt.Sprintf("pm%d_position", i)] = at(cfg.PMPositions, i-1)
	}

	for i := 1; i <= MaxHinges; i++ {
		v[fmt.Sprintf("hinge%d_position", i)] = at(cfg.HingePositions, i-1)
		v[fmt.Sprintf("hinge%d_active", i)] = boolInt(cfg.HingeIsActive(i))
	}

	orders := Orders(cfg)
	v["lock_order"] = orders[ComponentLock]
	for i := 1; i <= MaxHinges; i++ {
		v[fmt.Sprintf("hinge%d_order", i)] = orders[HingeComponent(i)]
	}

	return v
}

// Orders ranks the active components of the execution order list. The rank
// is 1-based among the active, known entries of the list, in list order;
// the first occurrence of a duplicate wins. Every component identifier is
// present in the result, with 0 when inactive or absent from the list.
func Orders(cfg Configuration) map[string]int {
	orders := map[string]int{ComponentLock: 0}
	for i := 1; i <= MaxHinges; i++ {
		orders[HingeComponent(i)] = 0
	}

	rank := 0
	for _, id := range cfg.ExecutionOrder {
		current, known := orders[id]
		if !known || current != 0 || !cfg.ComponentIsActive(id) {
			continue
		}
		rank++
		orders[id] = rank
	}
	return orders
}

// Strings formats every value for substitution. Whole numbers print
// without a fractional part (2100, not 2100.0).
func (v Vars) Strings() map[string]string {
	out := make(map[string]string, len(v))
	for k, val := range v {
		out[k] = FormatValue(val)
	}
	return out
}

// Keys returns the namespace keys, sorted.
func (v Vars) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FormatValue renders a namespace value as substitution text. Whole floats
// carry no fraction; booleans render as 1 or 0.
func FormatValue(val any) string {
	switch x := val.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

func at(vals []float64, i int) float64 {
	if i < len(vals) {
		return vals[i]
	}
	return 0
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
