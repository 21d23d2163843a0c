package device

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Evaluation is the outcome of one threshold pass over a device's vitals.
type Evaluation struct {
	IsEmergency bool      `json:"is_emergency"`
	Conditions  []string  `json:"conditions,omitempty"`
	CheckedAt   time.Time `json:"checked_at"`
}

// evaluate compares every vital sign against its configured "<metric>_min"
// and "<metric>_max" bounds. Metrics without any configured bound are
// skipped, never treated as breaches. Blood pressure values and bounds are
// "systolic/diastolic" strings and each component is range-checked
// independently. Metrics are visited in sorted order so condition lists are
// deterministic.
func evaluate(vitals, thresholds map[string]any) Evaluation {
	eval := Evaluation{CheckedAt: time.Now().UTC()}
	if len(vitals) == 0 || len(thresholds) == 0 {
		return eval
	}

	metrics := make([]string, 0, len(vitals))
	for metric := range vitals {
		metrics = append(metrics, metric)
	}
	sort.Strings(metrics)

	for _, metric := range metrics {
		value := vitals[metric]
		minBound, hasMin := thresholds[metric+"_min"]
		maxBound, hasMax := thresholds[metric+"_max"]
		if !hasMin && !hasMax {
			continue
		}

		if s, ok := value.(string); ok && strings.Contains(s, "/") {
			if cond, breached := checkBloodPressure(metric, s, minBound, maxBound); breached {
				eval.Conditions = append(eval.Conditions, cond)
			}
			continue
		}

		v, ok := toFloat(value)
		if !ok {
			continue
		}
		if cond, breached := checkRange(metric, v, minBound, maxBound); breached {
			eval.Conditions = append(eval.Conditions, cond)
		}
	}

	eval.IsEmergency = len(eval.Conditions) > 0

	return eval
}

func checkRange(metric string, v float64, minBound, maxBound any) (string, bool) {
	if lo, ok := toFloat(minBound); ok && v < lo {
		return fmt.Sprintf("%s %s below minimum %s", metricLabel(metric), formatNum(v), formatNum(lo)), true
	}
	if hi, ok := toFloat(maxBound); ok && v > hi {
		return fmt.Sprintf("%s %s above maximum %s", metricLabel(metric), formatNum(v), formatNum(hi)), true
	}
	return "", false
}

// checkBloodPressure parses "systolic/diastolic" readings and bounds and
// range-checks each component. A malformed reading or bound is skipped rather
// than treated as a breach.
func checkBloodPressure(metric, reading string, minBound, maxBound any) (string, bool) {
	sys, dia, ok := parseBloodPressure(reading)
	if !ok {
		return "", false
	}

	var conds []string

	if lo, ok := minBound.(string); ok {
		if loSys, loDia, ok := parseBloodPressure(lo); ok {
			if sys < loSys {
				conds = append(conds, fmt.Sprintf("systolic %s below minimum %s", formatNum(sys), formatNum(loSys)))
			}
			if dia < loDia {
				conds = append(conds, fmt.Sprintf("diastolic %s below minimum %s", formatNum(dia), formatNum(loDia)))
			}
		}
	}
	if hi, ok := maxBound.(string); ok {
		if hiSys, hiDia, ok := parseBloodPressure(hi); ok {
			if sys > hiSys {
				conds = append(conds, fmt.Sprintf("systolic %s above maximum %s", formatNum(sys), formatNum(hiSys)))
			}
			if dia > hiDia {
				conds = append(conds, fmt.Sprintf("diastolic %s above maximum %s", formatNum(dia), formatNum(hiDia)))
			}
		}
	}

	if len(conds) == 0 {
		return "", false
	}

	return fmt.Sprintf("%s %s out of range (%s)", metricLabel(metric), reading, strings.Join(conds, "; ")), true
}

func parseBloodPressure(s string) (sys, dia float64, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(s), "/", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	sys, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	dia, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, false
	}
	return sys, dia, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func metricLabel(metric string) string {
	return strings.ReplaceAll(metric, "_", " ")
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
